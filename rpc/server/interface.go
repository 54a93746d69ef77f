package server

import (
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for translating the requests of an active session into store calls
type IRPCServerAdapter interface {
	// Handle handles a request of the session with subscriber handle id and returns
	// the response. Failures are reported through the status of the response.
	// Connect and Disconnect are handled by the session itself and never reach Handle.
	Handle(req *common.Message, id db.SubscriberID, store store.IStore) (resp *common.Message)
}
