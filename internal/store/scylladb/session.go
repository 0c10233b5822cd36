// internal/store/scylladb/session.go
package scylladb

import (
	"context"

	"github.com/gocql/gocql"
)

// session is the part of *gocql.Session the store uses
type session interface {
	Query(stmt string, values ...interface{}) query
	Close()
}

// query is the part of *gocql.Query the store uses
type query interface {
	WithContext(ctx context.Context) query
	Exec() error
	Scan(dest ...interface{}) error
	ScanCAS(dest ...interface{}) (bool, error)
}

type gocqlSession struct {
	s *gocql.Session
}

func (g *gocqlSession) Query(stmt string, values ...interface{}) query {
	return &gocqlQuery{q: g.s.Query(stmt, values...)}
}

func (g *gocqlSession) Close() {
	g.s.Close()
}

type gocqlQuery struct {
	q *gocql.Query
}

func (g *gocqlQuery) WithContext(ctx context.Context) query {
	return &gocqlQuery{q: g.q.WithContext(ctx)}
}

func (g *gocqlQuery) Exec() error {
	return g.q.Exec()
}

func (g *gocqlQuery) Scan(dest ...interface{}) error {
	return g.q.Scan(dest...)
}

func (g *gocqlQuery) ScanCAS(dest ...interface{}) (bool, error) {
	return g.q.ScanCAS(dest...)
}
