package dummydb

import (
	"sync"

	"github.com/trezcool/mailroom/core/template"
)

type (
	DB struct {
		template *templateTable
	}

	templateTable struct {
		sync.RWMutex
		table map[string]*template.Template // by slug
	}
)

func Open() (*DB, error) {
	db := &DB{
		template: &templateTable{table: make(map[string]*template.Template)},
	}
	return db, nil
}
