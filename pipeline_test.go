package teerotate

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

func newTestPipeline(t *testing.T, dir tmpDir, wopts []OptionFunc, popts ...PipelineOptionFunc) (*Writer, *Pipeline) {
	t.Helper()
	l := zaptest.NewLogger(t)
	w, err := NewWriter(dir.prefix(), "log", append([]OptionFunc{WithLogger(l)}, wopts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return w, NewPipeline(w, append([]PipelineOptionFunc{WithPipelineLogger(l)}, popts...)...)
}

func withPipelineClock(now func() time.Time) PipelineOptionFunc {
	return func(o *pipelineOption) { o.now = now }
}

func TestPipeline_LineFlushThenFinalize(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	_, p := newTestPipeline(t, dir, nil, WithFlushInterval(time.Hour))

	in := make(chan []byte)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), in) }()

	in <- []byte("AAAA\nBBBB\nCCCC")
	// the line flush is visible before end of stream
	if err := retry(time.Second, 10*time.Millisecond, func() error {
		if got := dir.read(t, "temp_000.log"); got != "AAAA\nBBBB\n" {
			return fmt.Errorf("got %q", got)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	close(in)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := dir.read(t, "temp_000.log"); got != "AAAA\nBBBB\nCCCC" {
		t.Errorf("got %q", got)
	}
	if p.Written() != int64(len("AAAA\nBBBB\nCCCC")) {
		t.Errorf("Written() = %d", p.Written())
	}
}

func TestPipeline_EmptyChunkEndsStream(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	_, p := newTestPipeline(t, dir, nil)

	in := make(chan []byte, 3)
	in <- []byte("partial")
	in <- []byte{}
	in <- []byte("never")
	if err := p.Run(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if got := dir.read(t, "temp_000.log"); got != "partial" {
		t.Errorf("got %q", got)
	}
}

func TestPipeline_TimeoutFlushesPartialLine(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	_, p := newTestPipeline(t, dir, nil, WithFlushInterval(50*time.Millisecond))

	in := make(chan []byte)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), in) }()

	in <- []byte("no terminator")
	if err := retry(2*time.Second, 10*time.Millisecond, func() error {
		if got := dir.read(t, "temp_000.log"); got != "no terminator" {
			return fmt.Errorf("got %q", got)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	in <- []byte(" and more\n")
	close(in)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := dir.read(t, "temp_000.log"); got != "no terminator and more\n" {
		t.Errorf("got %q", got)
	}
}

func TestPipeline_RotationAndRetention(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	_, p := newTestPipeline(t, dir,
		[]OptionFunc{WithFileCount(2), WithPolicy(SizeBasedPolicy(20))},
		WithFlushInterval(time.Hour))

	in := make(chan []byte, 16)
	var want bytes.Buffer
	for i := 0; i < 8; i++ {
		line := fmt.Sprintf("line %02d is here\n", i) // 16 bytes
		want.WriteString(line)
		in <- []byte(line)
	}
	close(in)
	if err := p.Run(context.Background(), in); err != nil {
		t.Fatal(err)
	}

	// each segment takes two lines, the fifth segment is empty
	if diff := cmp.Diff([]string{"temp_003.log", "temp_004.log"}, dir.files(t)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if got := dir.read(t, "temp_003.log"); got != "line 06 is here\nline 07 is here\n" {
		t.Errorf("temp_003.log = %q", got)
	}
	if got := dir.read(t, "temp_004.log"); got != "" {
		t.Errorf("temp_004.log = %q", got)
	}
}

func TestPipeline_ConcatenationEqualsInput(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	_, p := newTestPipeline(t, dir,
		[]OptionFunc{WithFileCount(MaxFileCount), WithPolicy(SizeBasedPolicy(1000))},
		WithFlushInterval(time.Hour))

	var input bytes.Buffer
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&input, "%d:%s\n", i, strings.Repeat("z", i%37))
	}
	input.WriteString(strings.Repeat("w", 9000)) // overflows without a terminator
	input.WriteString("\ntrailing")

	in := make(chan []byte)
	ing := NewIngester(Stdin(), WithStdin(bytes.NewReader(input.Bytes())), WithIngestLogger(zaptest.NewLogger(t)))
	if err := ing.Open(); err != nil {
		t.Fatal(err)
	}

	eg, ctx := errgroup.WithContext(context.Background())
	eg.Go(func() error { return ing.Run(ctx, in) })
	eg.Go(func() error { return p.Run(ctx, in) })
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(input.String(), string(dir.concat(t))); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	files := dir.files(t)
	for _, fn := range files[:len(files)-1] {
		content := dir.read(t, fn)
		if len(content) < 1000 {
			t.Errorf("%s rotated at %d bytes", fn, len(content))
		}
		if limit := 1000 + DefaultOverflowSize + DefaultChunkSize; len(content) > limit {
			t.Errorf("%s holds %d bytes, more than %d", fn, len(content), limit)
		}
		if !strings.HasSuffix(content, "\n") && len(content) < DefaultOverflowSize {
			t.Errorf("%s does not end on a line boundary", fn)
		}
	}
}

func TestPipeline_CancelDrainsQueued(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	_, p := newTestPipeline(t, dir, nil, WithFlushInterval(time.Hour))

	in := make(chan []byte, 2)
	in <- []byte("queued\n")
	in <- []byte("partial")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Run(ctx, in); err != nil {
		t.Fatal(err)
	}
	if got := dir.read(t, "temp_000.log"); got != "queued\npartial" {
		t.Errorf("got %q", got)
	}
}

func TestPipeline_TickUsesWriterFlushTime(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now := base
	w, p := newTestPipeline(t, dir, nil,
		WithFlushInterval(time.Second),
		withPipelineClock(func() time.Time { return now }))
	defer w.Close()

	p.buf.Append([]byte("partial"))

	// flushed recently: the partial line stays buffered
	w.MarkFlushed(base.Add(-500 * time.Millisecond))
	if err := p.tick(); err != nil {
		t.Fatal(err)
	}
	if got := dir.read(t, "temp_000.log"); got != "" {
		t.Errorf("temp_000.log = %q", got)
	}
	if got := w.LastFlush(); !got.Equal(base.Add(-500 * time.Millisecond)) {
		t.Errorf("LastFlush = %v", got)
	}

	// idle for the whole interval: drained and stamped with the clock
	now = base.Add(time.Second)
	if err := p.tick(); err != nil {
		t.Fatal(err)
	}
	if got := dir.read(t, "temp_000.log"); got != "partial" {
		t.Errorf("temp_000.log = %q", got)
	}
	if got := w.LastFlush(); !got.Equal(now) {
		t.Errorf("LastFlush = %v, want %v", got, now)
	}
}

func TestPipeline_ConsumeMarksWriterFlushed(t *testing.T) {
	t.Parallel()

	dir := createTmpDir(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	w, p := newTestPipeline(t, dir, nil,
		WithFlushInterval(time.Hour),
		withPipelineClock(func() time.Time { return at }))

	in := make(chan []byte, 2)
	in <- []byte("one\ntw")
	close(in)
	if err := p.Run(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if got := w.LastFlush(); !got.Equal(at) {
		t.Errorf("LastFlush = %v, want %v", got, at)
	}
	if got := dir.read(t, "temp_000.log"); got != "one\ntw" {
		t.Errorf("temp_000.log = %q", got)
	}
}

// TestPipeline_SegmentSizeBound feeds irregular streams (random chunk sizes,
// long unterminated runs, idle gaps that trigger timeout flushes) and checks
// that no rotated file exceeds the rotation size by more than one overflow
// emission plus one chunk, and that the files concatenate back to the input.
func TestPipeline_SegmentSizeBound(t *testing.T) {
	t.Parallel()

	const (
		rotateAt = 2000
		maxChunk = 300
		streams  = 30
	)
	rnd := rand.New(rand.NewSource(1))

	for s := 0; s < streams; s++ {
		var input bytes.Buffer
		for input.Len() < 20000 {
			switch rnd.Intn(10) {
			case 0:
				input.Write(bytes.Repeat([]byte{'L'}, 5000))
			default:
				input.WriteString(strings.Repeat(string(rune('a'+rnd.Intn(26))), rnd.Intn(200)))
				input.WriteByte('\n')
			}
		}
		if rnd.Intn(2) == 0 {
			input.WriteString("unterminated tail")
		}
		var chunks [][]byte
		for b := input.Bytes(); len(b) > 0; {
			n := 1 + rnd.Intn(maxChunk)
			if n > len(b) {
				n = len(b)
			}
			chunks = append(chunks, b[:n])
			b = b[n:]
		}
		gaps := map[int]bool{}
		for i := 0; i < 3; i++ {
			gaps[rnd.Intn(len(chunks))] = true
		}

		t.Run(fmt.Sprintf("stream%02d", s), func(t *testing.T) {
			t.Parallel()

			dir := createTmpDir(t)
			_, p := newTestPipeline(t, dir,
				[]OptionFunc{WithFileCount(MaxFileCount), WithPolicy(SizeBasedPolicy(rotateAt))},
				WithFlushInterval(10*time.Millisecond))

			in := make(chan []byte)
			done := make(chan error, 1)
			go func() { done <- p.Run(context.Background(), in) }()
			for i, c := range chunks {
				in <- c
				if gaps[i] {
					time.Sleep(40 * time.Millisecond)
				}
			}
			close(in)
			if err := <-done; err != nil {
				t.Fatal(err)
			}

			if got := dir.concat(t); !bytes.Equal(got, input.Bytes()) {
				t.Fatalf("concatenation differs: got %d bytes, want %d", len(got), input.Len())
			}
			for _, fn := range dir.files(t) {
				if n := len(dir.read(t, fn)); n > rotateAt+DefaultOverflowSize+maxChunk {
					t.Errorf("%s holds %d bytes", fn, n)
				}
			}
		})
	}
}
