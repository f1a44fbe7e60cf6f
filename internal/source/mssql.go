package source

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/rileyhilliard/sqlmon/internal/config"
	"github.com/rileyhilliard/sqlmon/internal/errors"
	"github.com/rileyhilliard/sqlmon/internal/logger"
	"github.com/rileyhilliard/sqlmon/pkg/sshutil"
)

// dsnPassthrough are instance extra keys forwarded to the driver as DSN
// parameters. Keys arrive lowercased from the config loader.
var dsnPassthrough = []string{
	"encrypt",
	"trustservercertificate",
	"hostnameincertificate",
	"certificate",
	"packet size",
	"failoverpartner",
}

// SQLServer is the Source backed by github.com/microsoft/go-mssqldb.
type SQLServer struct {
	// QueryTimeout bounds the connection handshake and each procedure call.
	QueryTimeout time.Duration

	log logger.Logger

	dialTunnel   func(ctx context.Context, host string, timeout time.Duration) (sshutil.Tunnel, error)
	newConnector func(inst config.Instance, tunnel sshutil.Tunnel) (driver.Connector, error)
}

var _ Source = (*SQLServer)(nil)

// NewSQLServer creates a SQL Server source.
func NewSQLServer(queryTimeout time.Duration, log logger.Logger) *SQLServer {
	if log == nil {
		log = logger.Noop()
	}
	return &SQLServer{
		QueryTimeout: queryTimeout,
		log:          log,
		dialTunnel: func(ctx context.Context, host string, timeout time.Duration) (sshutil.Tunnel, error) {
			return sshutil.Dial(ctx, host, timeout)
		},
		newConnector: mssqlConnector,
	}
}

// DSN builds the sqlserver:// URL for an instance. A named instance can be
// given with the "instance" extra key.
func DSN(inst config.Instance) string {
	q := url.Values{}
	q.Set("database", inst.Database)
	q.Set("app name", "sqlmon")
	for _, key := range dsnPassthrough {
		if v, ok := inst.Extra[key]; ok {
			q.Set(key, v)
		}
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(inst.User, inst.Password),
		Host:     net.JoinHostPort(inst.Host, strconv.Itoa(inst.Port)),
		RawQuery: q.Encode(),
	}
	if named := inst.Extra["instance"]; named != "" {
		u.Path = "/" + named
	}
	return u.String()
}

func mssqlConnector(inst config.Instance, tunnel sshutil.Tunnel) (driver.Connector, error) {
	c, err := mssql.NewConnector(DSN(inst))
	if err != nil {
		return nil, err
	}
	if tunnel != nil {
		c.Dialer = tunnel
	}
	return c, nil
}

// Open connects to the instance, through its SSH tunnel when one is set.
func (s *SQLServer) Open(ctx context.Context, inst config.Instance) (Conn, error) {
	var tunnel sshutil.Tunnel
	if inst.SSHTunnel != "" {
		t, err := s.dialTunnel(ctx, inst.SSHTunnel, s.QueryTimeout)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConnection,
				fmt.Sprintf("Can't open SSH tunnel %s for %s", inst.SSHTunnel, inst.Name),
				"Check the tunnel host with: ssh "+inst.SSHTunnel)
		}
		tunnel = t
		s.log.Debug("ssh tunnel to %s open for %s", inst.SSHTunnel, inst.Name)
	}

	connector, err := s.newConnector(inst, tunnel)
	if err != nil {
		closeTunnel(tunnel)
		return nil, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("Invalid connection settings for %s", inst.Name),
			"Check host, port and extra DSN keys in the config")
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		closeTunnel(tunnel)
		return nil, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("Database connection failed for %s (%s:%d)", inst.Name, inst.Host, inst.Port),
			"Check the server is up and the credentials are right")
	}

	return &sqlConn{db: db, tunnel: tunnel, timeout: s.QueryTimeout}, nil
}

func closeTunnel(t sshutil.Tunnel) {
	if t != nil {
		t.Close()
	}
}

type sqlConn struct {
	db      *sql.DB
	tunnel  sshutil.Tunnel
	timeout time.Duration
}

func (c *sqlConn) Fetch(ctx context.Context, key string) (Record, error) {
	m, ok := Lookup(key)
	if !ok || m.Procedure == "" {
		return placeholderOrNoProc(key)
	}

	qctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Procedure names come from the static Metrics table.
	rows, err := c.db.QueryContext(qctx, "EXEC "+m.Procedure)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrQuery,
			fmt.Sprintf("SQL query error for %s", key),
			fmt.Sprintf("Check that %s exists and the login can execute it", m.Procedure))
	}
	defer rows.Close()

	rec, err := scanFirstRow(rows)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrQuery,
			fmt.Sprintf("Couldn't read %s result", key), "")
	}
	return rec, nil
}

// scanFirstRow reads the first row as a Record. No rows is an empty Record.
func scanFirstRow(rows *sql.Rows) (Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rec := Record{}
	if !rows.Next() {
		return rec, rows.Err()
	}

	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	for i, col := range cols {
		rec[col] = Normalize(vals[i])
	}
	return rec, nil
}

func (c *sqlConn) Close() error {
	err := c.db.Close()
	closeTunnel(c.tunnel)
	return err
}
