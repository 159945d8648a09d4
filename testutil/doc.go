// Package testutil provides testing utilities for binrec.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible random records that exercise every field kind
// and alignment combination.
//
//	rng := testutil.NewRNG(seed)
//	for _, rec := range rng.Records(1000, 12) {
//	    for _, f := range rec.Fields {
//	        // put f according to f.Kind
//	    }
//	}
package testutil
