package main

import (
	"io/fs"
	"log"
	"os"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/seed"
	"github.com/trezcool/mailroom/core/sequence"
	"github.com/trezcool/mailroom/core/template"
	appfs "github.com/trezcool/mailroom/fs"
	emailsvc "github.com/trezcool/mailroom/services/email"
	logsvc "github.com/trezcool/mailroom/services/logger"
	"github.com/trezcool/mailroom/storage/database"
	sqlxrepos "github.com/trezcool/mailroom/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()

	// set up DB
	db, err := database.OpenSqlx(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()

	// set up services
	seeds, err := fs.Sub(appfs.FS, "seed")
	if err != nil {
		logger.Fatal("opening embedded seed", err)
	}
	catalog, err := seed.Load(seeds)
	if err != nil {
		logger.Fatal("loading embedded seed", err)
	}
	registry, err := sequence.NewRegistry(catalog.Sequences...)
	if err != nil {
		logger.Fatal("registering sequences", err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		db:       db.DB,
		svc:      template.NewService(sqlxrepos.NewTemplateRepository(db), mailSvc, template.WithReferenceChecker(registry), template.WithLogger(logger)),
		registry: registry,
		seeds:    seeds,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		logger.Close()
		os.Exit(1)
	}
}
