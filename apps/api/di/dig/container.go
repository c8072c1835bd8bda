package dig_container

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/mailroom/apps/api/echo"
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

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParam struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	TemplateSvc *template.Service
	Sequences   *sequence.Registry
	Renderer    *sequence.Renderer
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.OpenSqlx(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newSeedCatalog loads the seed catalog embedded in the binary.
func newSeedCatalog() (*seed.Catalog, error) {
	dir, err := fs.Sub(appfs.FS, "seed")
	if err != nil {
		return nil, err
	}
	return seed.Load(dir)
}

func newSequenceRegistry(catalog *seed.Catalog) (*sequence.Registry, error) {
	return sequence.NewRegistry(catalog.Sequences...)
}

func newTemplateService(
	conf *core.Config,
	repo template.Repository,
	mailSvc core.EmailService,
	reg *sequence.Registry,
	logger core.Logger,
) *template.Service {
	return template.NewService(repo, mailSvc,
		template.WithCache(conf.Cache.Size),
		template.WithReferenceChecker(reg),
		template.WithLogger(logger),
	)
}

func newRenderer(svc *template.Service) *sequence.Renderer {
	return sequence.NewRenderer(svc)
}

func newServer(p ServerParam) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		TemplateSvc: p.TemplateSvc,
		Sequences:   p.Sequences,
		Renderer:    p.Renderer,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewTemplateRepository))
	must(c.Provide(newSeedCatalog))
	must(c.Provide(newSequenceRegistry))
	must(c.Provide(newTemplateService))
	must(c.Provide(newRenderer))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
