package binrec_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/binrec"
)

// Example writes one record to a compressed file and reads it back.
func Example() {
	dir, err := os.MkdirTemp("", "binrec-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	name := filepath.Join(dir, "stats.bin.gz")

	w, err := binrec.Create(name)
	if err != nil {
		log.Fatal(err)
	}
	w.PutLong(123456789)
	w.PutStr("abc")
	w.PutByte(7)
	if err := w.WriteRecord(5, 0); err != nil {
		log.Fatal(err)
	}
	if err := w.Close(); err != nil {
		log.Fatal(err)
	}

	r, err := binrec.Open(name)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	for {
		ok, err := r.ReadRecord()
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			break
		}
		fmt.Println(r.Type(), r.GetLong(), r.GetStr(), r.GetByte())
	}
	// Output: 5 123456789 abc 7
}

// ExampleCreateFake keeps records in memory.
func ExampleCreateFake() {
	store := &binrec.Records{}

	w, _ := binrec.CreateFake(store)
	_ = w.PutLongArray([]int64{10, 20, 30}, binrec.RecordXferSizes, 0)
	_ = w.PutStringArray([]string{"read", "write"}, binrec.RecordStringArray, 0)
	_ = w.Close()

	r, _ := binrec.OpenFake(store)
	defer r.Close()

	_, _ = r.ReadRecord()
	fmt.Println(r.GetLongArray())
	_, _ = r.ReadRecord()
	fmt.Println(r.GetStringArray())
	// Output:
	// [10 20 30]
	// [read write]
}

// ExampleBasicMetricsCollector collects in-memory statistics.
func ExampleBasicMetricsCollector() {
	metrics := &binrec.BasicMetricsCollector{}

	w, _ := binrec.CreateFake(&binrec.Records{}, binrec.WithMetricsCollector(metrics))
	for i := 0; i < 3; i++ {
		w.PutLong(int64(i))
		_ = w.WriteRecord(binrec.RecordDate, 0)
	}
	_ = w.Close()

	stats := metrics.GetStats()
	fmt.Println(stats.RecordsWritten, stats.WordsWritten)
	// Output: 3 6
}
