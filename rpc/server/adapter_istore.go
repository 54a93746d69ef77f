package server

import (
	"errors"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, id db.SubscriberID, s store.IStore) *common.Message {
	switch req.MsgType {
	case common.MsgTSubscribe:
		existed, err := s.Subscribe(id, req.Key)
		switch {
		case errors.Is(err, store.ErrCapacityExceeded):
			return common.NewResponse(req.MsgType, common.StatusSubscribeCapacity)
		case err != nil:
			Logger.Warningf("Subscribe of %d to %q failed: %v", id, req.Key, err)
			return common.NewResponse(req.MsgType, common.StatusSubscribeError)
		case existed:
			return common.NewResponse(req.MsgType, common.StatusSubscribeExisted)
		default:
			return common.NewResponse(req.MsgType, common.StatusSubscribeMissing)
		}
	case common.MsgTUnsubscribe:
		removed, err := s.Unsubscribe(id, req.Key)
		if err != nil {
			Logger.Warningf("Unsubscribe of %d from %q failed: %v", id, req.Key, err)
		}
		if removed {
			return common.NewResponse(req.MsgType, common.StatusUnsubscribeRemoved)
		}
		return common.NewResponse(req.MsgType, common.StatusUnsubscribeMissing)
	default:
		Logger.Warningf("Unsupported request of type %s", req.MsgType)
		return common.NewResponse(req.MsgType, common.StatusSubscribeError)
	}
}
