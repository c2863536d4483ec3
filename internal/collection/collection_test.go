package collection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-tracker/internal/apperror"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"tasks", "logs", "todos", "expenses", "journal"} {
		t.Run(name, func(t *testing.T) {
			k, err := Lookup(name)
			require.NoError(t, err)
			assert.Equal(t, name, k.String())
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("users")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestNew_RoundTripsThroughOf(t *testing.T) {
	for _, k := range All() {
		rec := k.New()
		require.NotNil(t, rec, k.String())
		got, ok := Of(rec)
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
}

// The store binds Values() positionally against Schema().Fields, so each
// field's declared type must match the Go value the model hands out.
func TestSchemaMatchesModelValues(t *testing.T) {
	for _, k := range All() {
		t.Run(k.String(), func(t *testing.T) {
			schema := k.Schema()
			values := k.New().Values()
			require.Len(t, values, len(schema.Fields))

			for i, f := range schema.Fields {
				v := values[i]
				switch f.Type {
				case String:
					assert.IsType(t, "", v, f.Column)
				case Bool:
					assert.IsType(t, false, v, f.Column)
				case Int:
					assert.IsType(t, int64(0), v, f.Column)
				case Float:
					assert.IsType(t, float64(0), v, f.Column)
				case StringList:
					assert.IsType(t, []string(nil), v, f.Column)
				default:
					t.Fatalf("unhandled field type %d", f.Type)
				}
			}
		})
	}
}

func TestCascadeTargetsExistingColumn(t *testing.T) {
	for _, k := range All() {
		for _, c := range k.Schema().Cascade {
			assert.Contains(t, c.Child.Schema().Columns(), c.Column)
		}
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, Journal.Valid())
	assert.False(t, Kind(99).Valid())
	assert.Equal(t, "unknown", Kind(-1).String())
}
