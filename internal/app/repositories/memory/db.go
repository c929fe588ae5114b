// Package memory holds in-process implementations of the repository
// interfaces. They back the "memory" database driver and the service tests.
package memory

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/realtime"
	"github.com/yigit/scribelink/internal/app/repositories"
)

type (
	// DB is a set of tables guarded by one lock.
	DB struct {
		mu  sync.RWMutex
		seq int64

		profiles      map[uuid.UUID]row[models.Profile]
		credentials   map[string]models.Credential
		exams         map[uuid.UUID]row[models.ExamRequest]
		matchRequests map[uuid.UUID]row[models.MatchRequest]
		audit         []models.AuditEntry

		publisher realtime.Publisher
	}

	row[T any] struct {
		seq int64
		v   T
	}
)

type nopPublisher struct{}

func (nopPublisher) Publish(realtime.ChangeEvent) {}

// Open creates an empty database. Match request writes are published to
// publisher when it is non-nil.
func Open(publisher realtime.Publisher) *DB {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &DB{
		profiles:      map[uuid.UUID]row[models.Profile]{},
		credentials:   map[string]models.Credential{},
		exams:         map[uuid.UUID]row[models.ExamRequest]{},
		matchRequests: map[uuid.UUID]row[models.MatchRequest]{},
		publisher:     publisher,
	}
}

// Repositories returns the store set backed by db.
func (db *DB) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Profiles:      &ProfileStore{db: db},
		Accounts:      &AccountStore{db: db},
		Exams:         &ExamStore{db: db},
		MatchRequests: &MatchRequestStore{db: db},
		Audit:         &AuditStore{db: db},
	}
}

// AuditEntries returns a copy of the stored audit log.
func (db *DB) AuditEntries() []models.AuditEntry {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]models.AuditEntry, len(db.audit))
	copy(out, db.audit)
	return out
}

func (db *DB) nextSeq() int64 {
	db.seq++
	return db.seq
}

// sorted returns the values of m ordered by less. Ties keep insertion order,
// reversed when newestFirst is set.
func sorted[T any](m map[uuid.UUID]row[T], keep func(T) bool, less func(a, b T) bool, newestFirst bool) []T {
	rows := make([]row[T], 0, len(m))
	for _, r := range m {
		if keep(r.v) {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if less != nil {
			if less(rows[i].v, rows[j].v) {
				return true
			}
			if less(rows[j].v, rows[i].v) {
				return false
			}
		}
		if newestFirst {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.v
	}
	return out
}
