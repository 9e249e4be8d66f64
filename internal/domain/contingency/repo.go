package contingency

import "context"

// Repository persists contingency sessions wholesale.
type Repository interface {
	Load(ctx context.Context) ([]*Session, error)
	Save(ctx context.Context, sessions []*Session) error
}
