// Package conv implements the streaming convolution engine used on the
// real-time audio path.
//
// The engine uses uniformly partitioned overlap-save convolution: the impulse
// response is cut into partitions of one block each, every partition is
// transformed once at init time, and each processed block costs one forward
// FFT, one inverse FFT and one spectral multiply-accumulate per partition
// against a frequency-domain delay line of past input spectra.
//
//	e := &conv.Engine{}
//	if err := e.Init(256, ir); err != nil {
//		return err
//	}
//	err := e.Process(in, out) // len(in) == len(out) == 256
//
// Output sample n depends on inputs up to and including n, so the engine adds
// no latency beyond the host block ([AddedLatency] is zero).
//
// Init allocates everything; Process never allocates, never blocks and only
// returns pre-built sentinel errors wrapping [ErrProcess].
package conv
