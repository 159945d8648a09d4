package binrec

import "math"

// Record framing. A header word carries the eye-catcher in bits 63-48, the
// record type in bits 47-40, the version in bits 39-32 and the record length
// in words, header included, in bits 23-0. All other bits are zero.
const (
	// EyeCatcher marks every header word.
	EyeCatcher = 0xEEEE

	// MaxRecordWords is the largest record length, header word included.
	MaxRecordWords = 1<<23 - 1

	// MaxType is the largest record type and version.
	MaxType = math.MaxInt8

	// MaxStringLength is the largest string length in UTF-16 code units.
	MaxStringLength = math.MaxInt16

	lengthMask = 1<<24 - 1
)

// Well-known record types.
const (
	RecordDate        uint8 = 1
	RecordFixed       uint8 = 2
	RecordKIO         uint8 = 3
	RecordTNF         uint8 = 4
	RecordSTF         uint8 = 6
	RecordCPU         uint8 = 7
	RecordStringArray uint8 = 31
	RecordXferSizes   uint8 = 32
	RecordXferCounts  uint8 = 33
	RecordXferBytes   uint8 = 34
	RecordSeqSizes    uint8 = 35
	RecordSeqCounts   uint8 = 36
	RecordSeqStreams  uint8 = 37
	RecordSeqBytes    uint8 = 38
	RecordNFS2Fields  uint8 = 39
	RecordNFS2        uint8 = 40
	RecordNFS3Fields  uint8 = 41
	RecordNFS3        uint8 = 42
	RecordNFS4Fields  uint8 = 43
	RecordNFS4        uint8 = 44
	RecordNamedHeader uint8 = 45
	RecordNamedFields uint8 = 46
	RecordNamedLongs  uint8 = 47
)

func makeHeader(typ, version uint8, words int) uint64 {
	return EyeCatcher<<48 | uint64(typ)<<40 | uint64(version)<<32 | uint64(words)
}

func validHeader(h uint64) bool {
	return h>>48 == EyeCatcher
}

func headerType(h uint64) uint8    { return uint8(h >> 40) }
func headerVersion(h uint64) uint8 { return uint8(h >> 32) }
func headerWords(h uint64) int     { return int(h & lengthMask) }
