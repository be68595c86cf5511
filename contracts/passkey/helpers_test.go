package passkey_test

import (
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

func stateNotification(h util.Uint160, name string, args ...stackitem.Item) state.NotificationEvent {
	return state.NotificationEvent{
		ScriptHash: h,
		Name:       name,
		Item:       stackitem.NewArray(args),
	}
}
