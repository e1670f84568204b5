package repositories

import (
	"context"
	"errors"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrMemberNotFound is returned when an update or delete matches no record.
	ErrMemberNotFound = errors.New("member not found")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// SortOrder names a field and direction for snapshot ordering.
type SortOrder struct {
	Field     string
	Ascending bool
}

// ByDueDate is the ordering the dashboard requests.
var ByDueDate = SortOrder{Field: "batteryDueDate", Ascending: true}

// MemberRepository defines the live member collection
type MemberRepository interface {
	// Subscribe streams full ordered snapshots until release is called or ctx
	// ends. A snapshot carrying Err is the last one delivered.
	Subscribe(ctx context.Context, order SortOrder) (snapshots <-chan models.Snapshot, release func(), err error)
	FindAll(ctx context.Context, order SortOrder) ([]*models.Member, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	Create(ctx context.Context, member *models.Member) (primitive.ObjectID, error)
	Update(ctx context.Context, id primitive.ObjectID, patch *models.MemberPatch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SessionRepository stores per-user session state
type SessionRepository interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}
