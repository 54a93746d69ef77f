package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// invokeRPCRequest writes req on the request channel and reads its response.
// A response of another type than the request is a protocol violation.
func invokeRPCRequest(req *common.Message, w io.Writer, r io.Reader, codec serializer.ICodec) (*common.Message, error) {
	if err := codec.WriteRequest(w, req); err != nil {
		return nil, fmt.Errorf("%w: send %s request: %v", store.ErrChannelFailure, req.MsgType, err)
	}
	return readResponse(req.MsgType, r, codec)
}

// readResponse reads the response to a request of type t
func readResponse(t common.MessageType, r io.Reader, codec serializer.ICodec) (*common.Message, error) {
	resp := &common.Message{}
	if err := codec.ReadResponse(r, resp); err != nil {
		if errors.Is(err, store.ErrProtocolViolation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read %s response: %v", store.ErrChannelFailure, t, err)
	}

	if resp.MsgType != t {
		return nil, store.NewError(store.RetCProtocolViolation,
			fmt.Sprintf("unexpected response type: %s, expected %s", resp.MsgType, t))
	}
	return resp, nil
}
