package utils

import (
	"strconv"
	"strings"
	"time"
)

// GenerateConnectionString собирает DSN для pgxpool.
// poolSize и timeout добавляются только если заданы.
func GenerateConnectionString(
	host, user, password, dbName, sslMode string,
	port, poolSize int,
	timeout time.Duration,
) (string, error) {
	switch {
	case host == "":
		return "", ErrStorageEmptyHostName
	case port <= 0 || port > 65535:
		return "", ErrStorageInvalidPortNumber
	case user == "":
		return "", ErrStorageEmptyUsername
	case password == "":
		return "", ErrStorageEmptyPassword
	case dbName == "":
		return "", ErrStorageInvalidDatabaseName
	case !validSslMode(sslMode):
		return "", ErrStorageInvalidSslMode
	case timeout < 0:
		return "", ErrStorageInvalidTimeout
	case poolSize < 0:
		return "", ErrStorageInvalidPoolSize
	}

	parts := []string{
		"host=" + host,
		"port=" + strconv.Itoa(port),
		"user=" + user,
		"password=" + password,
		"dbname=" + dbName,
		"sslmode=" + sslMode,
	}
	if timeout > 0 {
		parts = append(parts, "connect_timeout="+strconv.Itoa(int(timeout.Seconds())))
	}
	if poolSize > 0 {
		parts = append(parts, "pool_max_conns="+strconv.Itoa(poolSize))
	}

	return strings.Join(parts, " "), nil
}

func validSslMode(mode string) bool {
	switch mode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}
