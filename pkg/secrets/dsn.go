package secrets

import (
	"context"
	"fmt"
	"net/url"
)

// ResolveDatabaseURL returns the Postgres DSN stored in the named secret,
// or fallback when name is empty. The secret either carries a ready "dsn"
// (or plain string value) or the RDS-style host/port/username/password/dbname fields.
func ResolveDatabaseURL(ctx context.Context, p Provider, name, fallback string) (string, error) {
	if name == "" {
		return fallback, nil
	}
	if p == nil {
		return "", fmt.Errorf("no secrets provider for [%s]", name)
	}

	fields, err := p.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}
	if dsn := fields["dsn"]; dsn != "" {
		return dsn, nil
	}
	if v := fields["value"]; v != "" {
		return v, nil
	}

	host := fields["host"]
	if host == "" {
		return "", fmt.Errorf("secret [%s] has neither dsn nor host", name)
	}
	if port := fields["port"]; port != "" {
		host += ":" + port
	}
	dbname := fields["dbname"]
	if dbname == "" {
		dbname = fields["database"]
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(fields["username"], fields["password"]),
		Host:   host,
		Path:   "/" + dbname,
	}
	if mode := fields["sslmode"]; mode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(mode)
	}
	return u.String(), nil
}
