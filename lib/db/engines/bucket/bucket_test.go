package bucket

import (
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
)

func TestTruncation(t *testing.T) {
	table := NewBucketDB(&DBOptions{MaxStringLength: 4})
	defer table.Close()

	table.Write([]db.Pair{{Key: "abcdefgh", Value: "12345678"}})

	res := table.Read([]string{"abcd"})
	if len(res) != 1 || !res[0].Found {
		t.Fatalf("expected the truncated key to be stored, got %v", res)
	}
	if res[0].Value != "1234" {
		t.Errorf("expected truncated value 1234, got %s", res[0].Value)
	}

	// reading the long key hits the same truncated entry
	res = table.Read([]string{"abcdXYZ"})
	if !res[0].Found {
		t.Errorf("expected long key to be truncated before lookup")
	}
}

func TestSubscriberLimitPerEntry(t *testing.T) {
	table := NewBucketDB(&DBOptions{MaxSubscribersPerEntry: 2})
	defer table.Close()

	table.Write([]db.Pair{{Key: "k", Value: "v"}})

	for id := db.SubscriberID(1); id <= 2; id++ {
		if _, res := table.Subscribe("k", id); res != db.SubscribeAdded {
			t.Fatalf("subscriber %d: expected SubscribeAdded, got %v", id, res)
		}
	}
	if _, res := table.Subscribe("k", 3); res != db.SubscribeRefused {
		t.Errorf("expected SubscribeRefused for third subscriber, got %v", res)
	}
	if got := table.GetInfo().Subscriptions; got != 2 {
		t.Errorf("expected 2 subscriptions, got %d", got)
	}
}

func TestShowOrderIsBucketOrder(t *testing.T) {
	table := NewBucketDB(nil)
	defer table.Close()

	table.Write([]db.Pair{{Key: "zeta", Value: "1"}, {Key: "beta", Value: "2"}, {Key: "alpha", Value: "3"}, {Key: "bravo", Value: "4"}})

	var keys []string
	_ = table.Snapshot(func(p db.Pair) error {
		keys = append(keys, p.Key)
		return nil
	})

	want := []string{"alpha", "beta", "bravo", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], keys[i])
		}
	}
}

func TestGetInfo(t *testing.T) {
	table := NewBucketDB(nil)
	defer table.Close()

	table.Write([]db.Pair{{Key: "a1", Value: "x"}, {Key: "a2", Value: "x"}, {Key: "c", Value: "x"}})
	table.Subscribe("missing", 7)

	info := table.GetInfo()
	if info.Keys != 3 {
		t.Errorf("expected 3 keys, got %d", info.Keys)
	}
	if info.BucketSizes[0] != 2 || info.BucketSizes[2] != 1 {
		t.Errorf("unexpected bucket sizes %v", info.BucketSizes)
	}
	if info.Subscriptions != 1 {
		t.Errorf("expected the pending subscription to be counted, got %d", info.Subscriptions)
	}
	if info.DbType != db.ImplBucket {
		t.Errorf("unexpected db type %s", info.DbType)
	}
}
