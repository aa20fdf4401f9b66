package mapping

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMappingError_Error(t *testing.T) {
	e := &MappingError{Code: ErrCodeUnknownField, Message: "unexpected child tag <Foo>"}
	assert.Equal(t, "UNKNOWN_FIELD: unexpected child tag <Foo>", e.Error())

	e.Table = "nightly"
	assert.Equal(t, "UNKNOWN_FIELD: unexpected child tag <Foo> (table=nightly)", e.Error())

	e.Entry = 3
	assert.Equal(t, "UNKNOWN_FIELD: unexpected child tag <Foo> (table=nightly, entry=3)", e.Error())

	inner := errors.New("boom")
	e.Err = inner
	assert.Contains(t, e.Error(), ": boom")
	assert.ErrorIs(t, e, inner)
}

func TestMappingError_Helpers(t *testing.T) {
	malformed := fmt.Errorf("wrapped: %w", &MappingError{Code: ErrCodeMalformedDocument})
	assert.True(t, IsMalformedDocument(malformed))
	assert.False(t, IsMalformedDocument(&MappingError{Code: ErrCodeParentLookupFailure}))
	assert.False(t, IsMalformedDocument(nil))
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"aborted", fmt.Errorf("%w: stop", ErrAborted), CodeAborted},
		{"interrupted", fmt.Errorf("ask: %w", context.Canceled), CodeAborted},
		{"mapping error", fmt.Errorf("wrapped: %w", &MappingError{Code: ErrCodeParentLookupFailure}), string(ErrCodeParentLookupFailure)},
		{"other", errors.New("disk full"), CodeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestDecision(t *testing.T) {
	d, err := ParseDecision(" Skip ")
	assert.NoError(t, err)
	assert.Equal(t, DecisionSkip, d)

	d, err = ParseDecision("abort")
	assert.NoError(t, err)
	assert.Equal(t, "abort", d.String())

	_, err = ParseDecision("maybe")
	assert.Error(t, err)
	assert.Equal(t, "Decision(0)", Decision(0).String())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ExtractRecords", StateExtractRecords.String())
	assert.Equal(t, "MapPlans", StateMapPlans.String())
	assert.Equal(t, "MapJobs", StateMapJobs.String())
	assert.Equal(t, "Done", StateDone.String())
}
