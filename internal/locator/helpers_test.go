package locator_test

import (
	"context"
	"io"
	"log/slog"
)

type nopStore struct{}

func (nopStore) Load(context.Context, string, any) (bool, error) { return false, nil }
func (nopStore) Save(context.Context, string, any) error         { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
