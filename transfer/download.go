package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jonwraymond/relayops/apierr"
	"github.com/jonwraymond/relayops/executor"
	"github.com/jonwraymond/relayops/session"
)

// Download streams the target's content into w in range-sized chunks,
// computing the digest as bytes flow. It returns the number of bytes
// written. If the computed digest does not match expected, the transfer
// fails with a digest-mismatch error and the caller must discard whatever
// was written.
func (m *Manager) Download(ctx context.Context, target Target, expected Digest, w io.Writer) (int64, error) {
	dig := newDigester()
	var written int64

	for {
		start := written
		end := start + m.config.ChunkSize - 1

		resp, err := m.fetchRange(ctx, target, start, end)
		if err != nil {
			return written, err
		}

		if _, err := w.Write(resp.Body); err != nil {
			return written, fmt.Errorf("transfer: write output: %w", err)
		}
		dig.Write(resp.Body)
		written += int64(len(resp.Body))
		m.config.Metrics.RecordTransfer(ctx, m.meta(target, "download_chunk"), int64(len(resp.Body)))

		if m.downloadDone(resp, written) {
			break
		}
		if len(resp.Body) == 0 {
			// A peer that returns an empty 206 mid-stream would loop
			// forever; treat it as a truncated transfer.
			return written, apierr.New(apierr.KindTransientServer,
				"transfer: empty chunk at offset %d", written)
		}
	}

	if !expected.IsZero() && !dig.Digest().Equal(expected) {
		return written, &apierr.Error{
			Kind:   apierr.KindDigestMismatch,
			Target: target.Name,
			Err: fmt.Errorf("%w: computed %s, expected %s",
				ErrDigestMismatch, dig.Digest(), expected),
		}
	}
	return written, nil
}

// fetchRange requests one byte range of the blob.
func (m *Manager) fetchRange(ctx context.Context, target Target, start, end int64) (*executor.Response, error) {
	return m.exec.Execute(ctx, executor.Operation{
		Name:     "transfer.download",
		Adapter:  target.Adapter,
		Target:   target.Adapter,
		Category: target.Category,
		Build: func(_ *session.Session) (*executor.Request, error) {
			req := &executor.Request{Method: http.MethodGet, URL: target.DownloadURL}
			req.Header().Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
			return req, nil
		},
	})
}

// downloadDone reports whether the peer has no more bytes to serve: a 200
// means the peer ignored the range and sent everything, a 206 is final
// when the reported total size has been reached, and without a parsable
// Content-Range a short chunk ends the stream.
func (m *Manager) downloadDone(resp *executor.Response, written int64) bool {
	if resp.Status == http.StatusOK {
		return true
	}
	// Content-Range: bytes start-end/total
	var start, end, total int64
	if _, err := fmt.Sscanf(resp.Header("Content-Range"), "bytes %d-%d/%d", &start, &end, &total); err == nil {
		return written >= total
	}
	return int64(len(resp.Body)) < m.config.ChunkSize
}
