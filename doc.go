// Package binrec stores streams of self-describing, word-packed records.
//
// A record is a sequence of typed scalar fields (8, 16, 32 and 64 bit
// integers and UTF-16 strings) framed by a header word that carries an
// eye-catcher, a 7-bit record type, a 7-bit version and the record length in
// 64-bit words. Fields are packed at their natural alignment without ever
// crossing a word boundary, so four 16-bit fields share one word.
//
// # Writing
//
//	f, err := binrec.Create("stats.bin.gz")
//	if err != nil {
//	    return err
//	}
//	f.PutLong(123456789)
//	f.PutStr("abc")
//	f.PutByte(7)
//	if err := f.WriteRecord(5, 0); err != nil {
//	    return err
//	}
//	return f.Close()
//
// # Reading
//
//	f, err := binrec.Open("stats.bin")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	for {
//	    ok, err := f.ReadRecord()
//	    if err != nil || !ok {
//	        return err
//	    }
//	    n, s, b := f.GetLong(), f.GetStr(), f.GetByte()
//	    // ...
//	}
//
// # Compression
//
// Names ending in ".gz" (or any name with WithCompression) are compressed on a
// background worker while the caller keeps producing records. When the
// uncompressed size of one segment would exceed the segment limit (just below
// 2 GiB by default), the output continues in "name.jz2", "name.jz3" and so on,
// and the first segment is renamed from "name.gz" to "name.jz1". Open finds
// the plain file, the ".gz" segment or the first continuation on its own and
// chains all continuations.
//
// # Errors
//
// Field errors are sticky and surface from WriteRecord, ReadRecord and Err.
// Corrupt headers are reported as *CorruptionError, I/O failures as *OpError.
// A record cut short by the end of the input is treated as the end of the
// input. Install FatalHandler with WithFailureHandler to log and exit on the
// first terminal error instead of handling errors at every call site.
//
// # Registry
//
// Every open file is tracked by a Registry that enforces a cap on open files
// (15000 by default) and can close all of them at once.
package binrec
