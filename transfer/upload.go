package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/executor"
	"github.com/jonwraymond/relayops/session"
	"github.com/jonwraymond/relayops/telemetry"
)

// ManagerConfig configures the transfer manager.
type ManagerConfig struct {
	// ChunkSize is the upload/download chunk size in bytes.
	// Default: 5 MiB
	ChunkSize int64

	// Metrics records transferred byte counts. Default: noop
	Metrics telemetry.Metrics

	// Checkpoint, when set, receives the upload state after the peer
	// assigns a location and after every acknowledged chunk. Callers
	// persist the marshaled state so an interrupted upload can Resume
	// after a restart. The pointer is only valid during the call.
	Checkpoint func(*Session)
}

// Manager performs chunked transfers through an executor. Each chunk is
// one executor-mediated operation, so the resilience pipeline (admission,
// breaker, retry) applies per chunk.
type Manager struct {
	exec   *executor.Executor
	config ManagerConfig
}

// NewManager creates a transfer manager.
func NewManager(exec *executor.Executor, config ManagerConfig) *Manager {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 5 << 20
	}
	if config.Metrics == nil {
		config.Metrics = telemetry.NopMetrics()
	}
	return &Manager{exec: exec, config: config}
}

// Upload sends size bytes from r to the target in chunks and commits with
// the expected digest. It returns the committed digest. If expected is
// zero, the digest is computed from the content as it streams.
func (m *Manager) Upload(ctx context.Context, target Target, r io.ReaderAt, size int64, expected Digest) (Digest, error) {
	state := &Session{
		Target:    target.Name,
		Expected:  expected,
		TotalSize: size,
	}
	return m.run(ctx, target, r, state)
}

// Resume continues an interrupted upload from a deserialized session
// snapshot. The peer's authoritative offset is queried first, so chunks
// the peer already holds are not re-sent.
func (m *Manager) Resume(ctx context.Context, target Target, r io.ReaderAt, state *Session) (Digest, error) {
	if state.Location != "" {
		offset, err := m.probeOffset(ctx, target, state.Location)
		if err != nil {
			return Digest{}, err
		}
		state.Bytes = offset
	}
	return m.run(ctx, target, r, state)
}

func (m *Manager) run(ctx context.Context, target Target, r io.ReaderAt, state *Session) (Digest, error) {
	if state.Location == "" {
		loc, err := m.initiate(ctx, target)
		if err != nil {
			return Digest{}, err
		}
		state.Location = loc
		state.Bytes = 0
		m.checkpoint(state)
	}

	// Only a from-zero upload can compute the digest on the fly; a resume
	// must bring the expected digest in the session state.
	var dig *digester
	if state.Expected.IsZero() {
		if state.Bytes != 0 {
			return Digest{}, apierr.New(apierr.KindConfiguration,
				"transfer: resumed upload of %s needs an expected digest", state.Target)
		}
		dig = newDigester()
	}

	buf := make([]byte, m.config.ChunkSize)
	lastProbed := int64(-1)
	for state.Bytes < state.TotalSize {
		end := state.Bytes + m.config.ChunkSize
		if end > state.TotalSize {
			end = state.TotalSize
		}
		chunk := buf[:end-state.Bytes]
		if _, err := r.ReadAt(chunk, state.Bytes); err != nil {
			return Digest{}, fmt.Errorf("transfer: read source at %d: %w", state.Bytes, err)
		}

		err := m.putChunk(ctx, target, state.Location, chunk, state.Bytes, end-1)
		if errors.Is(err, ErrRangeMismatch) {
			offset, perr := m.probeOffset(ctx, target, state.Location)
			if perr != nil {
				return Digest{}, perr
			}
			if offset == lastProbed {
				return Digest{}, apierr.New(apierr.KindTransientServer,
					"transfer: peer rejected its own reported offset %d for %s", offset, state.Target)
			}
			lastProbed = offset
			if dig != nil && offset != state.Bytes {
				// The running hash must cover exactly the acknowledged
				// prefix; rebuild it from the source.
				rehashed, herr := hashPrefix(r, offset, buf)
				if herr != nil {
					return Digest{}, herr
				}
				dig = rehashed
			}
			state.Bytes = offset
			continue
		}
		if err != nil {
			return Digest{}, err
		}

		if dig != nil {
			dig.Write(chunk)
		}
		m.config.Metrics.RecordTransfer(ctx, m.meta(target, "upload_chunk"), end-state.Bytes)
		state.Bytes = end
		m.checkpoint(state)
	}

	committed := state.Expected
	if dig != nil {
		committed = dig.Digest()
	}
	if err := m.commit(ctx, target, state.Location, committed); err != nil {
		return Digest{}, err
	}
	return committed, nil
}

// hashPrefix digests the first n bytes of the source.
func hashPrefix(r io.ReaderAt, n int64, buf []byte) (*digester, error) {
	dig := newDigester()
	for off := int64(0); off < n; {
		end := off + int64(len(buf))
		if end > n {
			end = n
		}
		chunk := buf[:end-off]
		if _, err := r.ReadAt(chunk, off); err != nil {
			return nil, fmt.Errorf("transfer: read source at %d: %w", off, err)
		}
		dig.Write(chunk)
		off = end
	}
	return dig, nil
}

// initiate starts an upload and returns the peer's upload location.
func (m *Manager) initiate(ctx context.Context, target Target) (string, error) {
	resp, err := m.exec.Execute(ctx, executor.Operation{
		Name:     "transfer.initiate",
		Adapter:  target.Adapter,
		Target:   target.Adapter,
		Category: target.Category,
		Build: func(_ *session.Session) (*executor.Request, error) {
			return &executor.Request{Method: http.MethodPost, URL: target.InitiateURL}, nil
		},
	})
	if err != nil {
		return "", err
	}

	loc := resp.Header("Location")
	if loc == "" {
		return "", apierr.Wrap(apierr.KindConfiguration, ErrNoLocation)
	}
	return loc, nil
}

// putChunk sends one byte range. A 416 from the peer surfaces as
// ErrRangeMismatch so the caller can recover via probeOffset.
func (m *Manager) putChunk(ctx context.Context, target Target, location string, chunk []byte, start, end int64) error {
	_, err := m.exec.Execute(ctx, executor.Operation{
		Name:     "transfer.chunk",
		Adapter:  target.Adapter,
		Target:   target.Adapter,
		Category: target.Category,
		Build: func(_ *session.Session) (*executor.Request, error) {
			req := &executor.Request{Method: http.MethodPatch, URL: location, Body: chunk}
			req.Header().Set("Content-Type", "application/octet-stream")
			req.Header().Set("Content-Range", fmt.Sprintf("%d-%d", start, end))
			return req, nil
		},
		Classify: classifyChunk,
	})
	return err
}

// classifyChunk handles the peer's range verdict on top of the default
// status mapping.
func classifyChunk(resp *executor.Response) error {
	if resp.Status == http.StatusRequestedRangeNotSatisfiable {
		return &apierr.Error{
			Kind:   apierr.KindValidation,
			Status: resp.Status,
			Err:    ErrRangeMismatch,
		}
	}
	return executor.ClassifyStatus(resp)
}

// probeOffset asks the peer how many bytes it has acknowledged and
// returns the next offset to send from.
func (m *Manager) probeOffset(ctx context.Context, target Target, location string) (int64, error) {
	resp, err := m.exec.Execute(ctx, executor.Operation{
		Name:     "transfer.status",
		Adapter:  target.Adapter,
		Target:   target.Adapter,
		Category: target.Category,
		Build: func(_ *session.Session) (*executor.Request, error) {
			return &executor.Request{Method: http.MethodGet, URL: location}, nil
		},
	})
	if err != nil {
		return 0, err
	}

	// The peer reports its committed range as "0-<last byte>"; nothing
	// acknowledged yet reads as an absent header.
	rangeHeader := resp.Header("Range")
	if rangeHeader == "" {
		return 0, nil
	}
	_, last, ok := strings.Cut(rangeHeader, "-")
	if !ok {
		return 0, apierr.New(apierr.KindValidation, "transfer: malformed range header %q", rangeHeader)
	}
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0, apierr.New(apierr.KindValidation, "transfer: malformed range header %q", rangeHeader)
	}
	return n + 1, nil
}

// commit finalizes the upload with the content digest.
func (m *Manager) commit(ctx context.Context, target Target, location string, dig Digest) error {
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	url := location + sep + "digest=" + dig.String()

	_, err := m.exec.Execute(ctx, executor.Operation{
		Name:     "transfer.commit",
		Adapter:  target.Adapter,
		Target:   target.Adapter,
		Category: target.Category,
		Build: func(_ *session.Session) (*executor.Request, error) {
			return &executor.Request{Method: http.MethodPut, URL: url}, nil
		},
	})
	return err
}

func (m *Manager) checkpoint(state *Session) {
	if m.config.Checkpoint != nil {
		m.config.Checkpoint(state)
	}
}

func (m *Manager) meta(target Target, op string) telemetry.OpMeta {
	return telemetry.OpMeta{
		Adapter:  target.Adapter,
		Name:     op,
		Target:   target.Adapter,
		Category: string(target.Category),
	}
}
