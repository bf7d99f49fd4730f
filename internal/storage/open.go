package storage

import (
	"context"
	"fmt"
)

const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendDynamo   = "dynamo"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Namespace string

	Dir string

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// SealKey, when set, encrypts the values of SealedKeys at rest.
	SealKey    string
	SealedKeys []string
}

// Open returns the configured backend, wrapped in Sealed when a seal key is
// set.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendFile, "":
		s, err = NewFile(opts.Dir)
	case BackendMemory:
		s = NewMemory()
	case BackendPostgres:
		s, err = OpenPostgres(ctx, opts.PostgresDSN, opts.Namespace)
	case BackendRedis:
		s, err = OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.Namespace)
	case BackendDynamo:
		s, err = OpenDynamo(ctx, opts.DynamoTable, opts.DynamoRegion, opts.DynamoEndpoint, opts.Namespace)
	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	if opts.SealKey != "" {
		s = NewSealed(s, opts.SealKey, opts.SealedKeys...)
	}
	return s, nil
}
