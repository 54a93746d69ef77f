package serializer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// benchmarkMessages returns a set of notifications for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Deleted": {
			MsgType: common.MsgTKVDeleted,
			Key:     "k",
		},
		"SmallValue": {
			MsgType: common.MsgTKVUpdated,
			Key:     "key",
			Value:   "v",
		},
		"MaxValue": {
			MsgType: common.MsgTKVUpdated,
			Key:     strings.Repeat("k", 40),
			Value:   strings.Repeat("v", 40),
		},
	}
}

// BenchmarkNotificationRoundTrip measures writing and reading one notification
func BenchmarkNotificationRoundTrip(b *testing.B) {
	for codecName, factory := range testCodecs {
		codec := factory()
		for msgName, msg := range benchmarkMessages() {
			msg := msg
			b.Run(codecName+"/"+msgName, func(b *testing.B) {
				var buf bytes.Buffer
				var out common.Message
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := codec.WriteNotification(&buf, &msg); err != nil {
						b.Fatal(err)
					}
					if err := codec.ReadNotification(&buf, &out); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkSerializedSize reports the size of a serialized subscribe request per codec
func BenchmarkSerializedSize(b *testing.B) {
	req := common.NewSubscribeRequest("medium-length-key")
	for codecName, factory := range testCodecs {
		codec := factory()
		b.Run(codecName, func(b *testing.B) {
			var buf bytes.Buffer
			for i := 0; i < b.N; i++ {
				buf.Reset()
				_ = codec.WriteRequest(&buf, req)
			}
			b.ReportMetric(float64(buf.Len()), "bytes/msg")
		})
	}
}
