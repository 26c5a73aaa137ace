package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConstraintErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		unique  bool
		foreign bool
		check   bool
	}{
		{
			name: "nil",
			err:  nil,
		},
		{
			name: "unrelated",
			err:  errors.New("connection refused"),
		},
		{
			name:   "mysql duplicate entry",
			err:    &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ada' for key 'users.email'"},
			unique: true,
		},
		{
			name:    "mysql fk child",
			err:     &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"},
			foreign: true,
		},
		{
			name:    "mysql fk parent wrapped",
			err:     fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}),
			foreign: true,
		},
		{
			name:  "mysql check",
			err:   &mysql.MySQLError{Number: 3819, Message: "Check constraint 'age_chk' is violated"},
			check: true,
		},
		{
			name:   "postgres unique",
			err:    &pq.Error{Code: "23505"},
			unique: true,
		},
		{
			name:    "postgres foreign key",
			err:     &pq.Error{Code: "23503"},
			foreign: true,
		},
		{
			name:  "postgres check",
			err:   &pq.Error{Code: "23514"},
			check: true,
		},
		{
			name:   "sqlite unique text",
			err:    errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"),
			unique: true,
		},
		{
			name:    "sqlite foreign key text",
			err:     errors.New("constraint failed: FOREIGN KEY constraint failed (787)"),
			foreign: true,
		},
		{
			name:  "sqlite check text",
			err:   errors.New("constraint failed: CHECK constraint failed: age >= 0 (275)"),
			check: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.foreign, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.foreign || tt.check, IsConstraintError(tt.err))
		})
	}
}
