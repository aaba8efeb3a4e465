package kernel

import (
	"testing"

	"github.com/ksd-co/rule-engine-postgres/builtins"
	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownFunctionCallRecordsOriginalErrorCode(t *testing.T) {
	cp := compile(t, `rule "bad" when Order.total > 0 then call nosuchfunction(Order.total);`)
	f := seedFacts(t, `{"Order":{"total":10}}`)

	_, session, err := Evaluate(f, cp, types.NewConfig(), Options{Registry: builtins.New()})
	require.NoError(t, err)

	var errEvent *Event
	for i := range session.Steps {
		if session.Steps[i].Kind == EventError {
			errEvent = &session.Steps[i]
			break
		}
	}
	require.NotNil(t, errEvent)
	assert.Equal(t, types.CodeUnknownFunction, errEvent.ErrorCode)
	assert.Contains(t, errEvent.ErrorMessage, "nosuchfunction")
}
