package bucket

import (
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
	dbtesting "github.com/ValentinKolb/sKV/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BucketDB", func(notifier db.INotifier) db.KVDB {
		return NewBucketDB(&DBOptions{Notifier: notifier})
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "BucketDB", func(notifier db.INotifier) db.KVDB {
		return NewBucketDB(&DBOptions{Notifier: notifier})
	})
}
