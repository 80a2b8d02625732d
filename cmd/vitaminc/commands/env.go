package commands

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/awnumar/memguard"

	"github.com/systmms/vitaminc/internal/config"
	"github.com/systmms/vitaminc/internal/keystore"
	"github.com/systmms/vitaminc/internal/metrics"
	"github.com/systmms/vitaminc/pkg/kms"
	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
)

// Env carries the configuration and the external collaborators shared by
// all commands. Tests replace the constructors with fakes.
type Env struct {
	Config *config.Config

	OpenStore func(ctx context.Context) (keystore.Store, error)
	KMSClient func(ctx context.Context) (kms.Client, error)
	NewRand   func() (*random.SafeRand, error)

	metrics *metrics.Server
}

// NewEnv returns an Env backed by the real key store, KMS and entropy.
func NewEnv() *Env {
	env := &Env{Config: &config.Config{}}
	env.OpenStore = func(ctx context.Context) (keystore.Store, error) {
		return keystore.New(ctx, env.definition().Keystore, env.Config.Logger)
	}
	env.KMSClient = func(ctx context.Context) (kms.Client, error) {
		k := env.definition().KMS
		client, err := kms.NewClient(ctx, kms.Config{Region: k.Region, Endpoint: k.Endpoint})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	env.NewRand = random.FromEntropy
	return env
}

func (e *Env) definition() *config.Definition {
	if e.Config.Definition == nil {
		e.Config.Definition = config.Default()
	}
	return e.Config.Definition
}

// Close stops the metrics server if a command started one. Cobra skips
// post-run hooks when a command fails, so whoever executes the command
// tree must call Close.
func (e *Env) Close() error {
	if e.metrics == nil {
		return nil
	}
	server := e.metrics
	e.metrics = nil
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(ctx)
}

// readAll reads r straight into protected memory, wiping every buffer it
// outgrows.
func readAll(r io.Reader) (*protected.Protected[[]byte], error) {
	out := protected.New(make([]byte, 0, 512))
	var err error
	for err == nil {
		out.Update(func(b *[]byte) {
			if len(*b) == cap(*b) {
				grown := make([]byte, len(*b), 2*cap(*b))
				copy(grown, *b)
				memguard.WipeBytes((*b)[:cap(*b)])
				*b = grown
			}
			var n int
			n, err = r.Read((*b)[len(*b):cap(*b)])
			*b = (*b)[:len(*b)+n]
		})
	}
	if errors.Is(err, io.EOF) {
		return out, nil
	}
	_ = out.Close()
	return nil, err
}

// writeProtected writes the contents of p to w without copying them out.
func writeProtected(w io.Writer, p protected.Controlled[[]byte]) error {
	var err error
	p.Update(func(b *[]byte) { _, err = w.Write(*b) })
	return err
}
