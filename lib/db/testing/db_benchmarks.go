package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/sKV/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Write", func(b *testing.B) {
		benchmarkWrite(b, factory(nil))
	})

	b.Run("WriteBatch", func(b *testing.B) {
		benchmarkWriteBatch(b, factory(nil))
	})

	b.Run("Read", func(b *testing.B) {
		benchmarkRead(b, factory(nil))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory(nil))
	})

	b.Run("Snapshot", func(b *testing.B) {
		benchmarkSnapshot(b, factory(nil))
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory(nil))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// benchKeys returns n keys spread over all first characters
func benchKeys(n int) []string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%c-key-%d", alphabet[i%len(alphabet)], i)
	}
	return keys
}

func benchmarkWrite(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})
	keys := benchKeys(1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Write([]db.Pair{{Key: keys[counter%len(keys)], Value: "value"}})
			counter++
		}
	})
}

func benchmarkWriteBatch(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})
	keys := benchKeys(1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(rand.Int63()))
		batch := make([]db.Pair, 8)
		for pb.Next() {
			for i := range batch {
				batch[i] = db.Pair{Key: keys[rnd.Intn(len(keys))], Value: "value"}
			}
			database.Write(batch)
		}
	})
}

func benchmarkRead(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})
	keys := benchKeys(1024)
	for _, k := range keys {
		database.Write([]db.Pair{{Key: k, Value: "value"}})
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Read([]string{keys[counter%len(keys)]})
			counter++
		}
	})
}

func benchmarkDelete(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})
	keys := benchKeys(1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := keys[i%len(keys)]
		database.Write([]db.Pair{{Key: k, Value: "value"}})
		database.Delete([]string{k})
	}
}

func benchmarkSnapshot(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})
	for _, k := range benchKeys(1024) {
		database.Write([]db.Pair{{Key: k, Value: "value"}})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Snapshot(func(db.Pair) error { return nil })
	}
}

func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})
	keys := benchKeys(1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			k := keys[rnd.Intn(len(keys))]
			switch rnd.Intn(10) {
			case 0:
				database.Delete([]string{k})
			case 1, 2, 3:
				database.Write([]db.Pair{{Key: k, Value: "value"}})
			default:
				database.Read([]string{k})
			}
		}
	})
}
