package vidcore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the sanitized view of an authenticated account exposed to
// downstream handlers. It never carries the password hash or the stored
// refresh token.
type Identity interface {
	ID() uuid.UUID
	Handle() string
	Email() string
	DisplayName() string
}

// MediaStore uploads a local file to remote object storage and returns
// its public URL.
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] VIDCORE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] VIDCORE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] VIDCORE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
