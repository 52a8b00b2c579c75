package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Dialect はバインドパラメータの記法を表します。
type Dialect int

const (
	// DialectQuestion は "?" 形式 (MySQL, Snowflake) です。
	DialectQuestion Dialect = iota
	// DialectDollar は "$1" 形式 (PostgreSQL, Redshift) です。
	DialectDollar
)

// DialectFor はデータベースタイプに対応する Dialect を返します。
func DialectFor(dbType string) Dialect {
	switch strings.ToLower(dbType) {
	case "postgres", "redshift":
		return DialectDollar
	default:
		return DialectQuestion
	}
}

// Rebind は "?" で記述されたクエリを Dialect の記法に変換します。
func (d Dialect) Rebind(query string) string {
	if d != DialectDollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tx はデータベーストランザクションのインターフェースです。
// sql.Tx の必要なメソッドを抽象化します。
type Tx interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DBConnection はデータベース接続のインターフェースです。
// sql.DB の必要なメソッドを抽象化します。
type DBConnection interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
	Dialect() Dialect
	Close() error
}

// sqlDBAdapter は sql.DB を database.DBConnection インターフェースに適合させるアダプターです。
type sqlDBAdapter struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLDBAdapter は新しい sqlDBAdapter のインスタンスを作成します。
func NewSQLDBAdapter(db *sql.DB, dialect Dialect) DBConnection {
	return &sqlDBAdapter{db: db, dialect: dialect}
}

// BeginTx は sql.DB の BeginTx メソッドを呼び出します。*sql.Tx はそのまま Tx を満たします。
func (a *sqlDBAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := a.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (a *sqlDBAdapter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return a.db.ExecContext(ctx, query, args...)
}

func (a *sqlDBAdapter) PingContext(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *sqlDBAdapter) Dialect() Dialect {
	return a.dialect
}

func (a *sqlDBAdapter) Close() error {
	return a.db.Close()
}
