package port

import (
	"errors"
	"sync"

	"github.com/sweeney/taskpanel/internal/logic"
)

// FakePort is a test double that returns scripted input samples and records
// output writes. It is safe for concurrent use.
type FakePort struct {
	mu sync.Mutex

	// samples holds the scripted values per input channel. Each Read
	// consumes the next one; when exhausted the last is returned repeatedly,
	// or the script restarts if loop is set.
	samples map[Channel][]logic.Sample
	index   map[Channel]int
	served  map[Channel]int
	repeat  int
	loop    bool

	writes map[Channel][]logic.Sample

	// ReadError, if set, will be returned by Read().
	ReadError error

	// WriteError, if set, will be returned by Write().
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePort creates a FakePort with no scripted samples.
func NewFakePort() *FakePort {
	return &FakePort{
		samples: make(map[Channel][]logic.Sample),
		index:   make(map[Channel]int),
		served:  make(map[Channel]int),
		writes:  make(map[Channel][]logic.Sample),
		repeat:  1,
	}
}

// Script sets the samples returned for ch and rewinds it.
func (f *FakePort) Script(ch Channel, samples ...logic.Sample) *FakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[ch] = samples
	f.index[ch] = 0
	f.served[ch] = 0
	return f
}

// Set makes ch read s from now on.
func (f *FakePort) Set(ch Channel, s logic.Sample) {
	f.Script(ch, s)
}

// Repeat makes every scripted sample be served n times in a row.
func (f *FakePort) Repeat(n int) *FakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n < 1 {
		n = 1
	}
	f.repeat = n
	return f
}

// Loop restarts each script after its last sample.
func (f *FakePort) Loop() *FakePort {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loop = true
	return f
}

// Read returns the next scripted sample for ch.
func (f *FakePort) Read(ch Channel) (logic.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return 0, f.ReadError
	}

	samples := f.samples[ch]
	if len(samples) == 0 {
		return 0, errors.New("no samples configured for " + string(ch))
	}

	i := f.index[ch]
	sample := samples[i]

	f.served[ch]++
	if f.served[ch] >= f.repeat {
		f.served[ch] = 0
		switch {
		case i < len(samples)-1:
			f.index[ch] = i + 1
		case f.loop:
			f.index[ch] = 0
		}
	}
	return sample, nil
}

// Write records s as written to ch.
func (f *FakePort) Write(ch Channel, s logic.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return f.WriteError
	}
	f.writes[ch] = append(f.writes[ch], s)
	return nil
}

// Writes returns a copy of every value written to ch.
func (f *FakePort) Writes(ch Channel) []logic.Sample {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]logic.Sample, len(f.writes[ch]))
	copy(out, f.writes[ch])
	return out
}

// Last returns the most recent value written to ch.
func (f *FakePort) Last(ch Channel) (logic.Sample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.writes[ch]
	if len(w) == 0 {
		return 0, false
	}
	return w[len(w)-1], true
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// simHold is how many polls each simulated input pattern is held for.
const simHold = 20

// NewSimPort returns a looping FakePort that walks through a short
// demonstration: buttons pressed under changing switches, the priority
// button, and the switch pair that pauses the button producer.
func NewSimPort() *FakePort {
	return NewFakePort().
		Script(ChannelButtons, 0b0000, 0b0001, 0b0000, 0b0101, 0b0000, 0b0011, 0b0000, 0b0100, 0b0000, 0b1000, 0b0000).
		Script(ChannelSwitches, 0b1111, 0b0101, 0b0100, 0b0011, 0b0000, 0b1111).
		Repeat(simHold).
		Loop()
}
