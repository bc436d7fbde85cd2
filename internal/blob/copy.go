package blob

import (
	"errors"
	"io"

	log "github.com/sirupsen/logrus"
)

const chunkSize = int64(32 * 1024)

// CopyLimited copies src to dst in chunks. It fails with ErrTooLarge as soon as
// more than limit bytes arrive (limit <= 0 means no limit). expected is the
// announced size used for progress reporting, -1 if unknown.
func CopyLimited(dst io.Writer, src io.Reader, limit, expected int64) (int64, error) {
	if limit > 0 && expected > limit {
		return 0, ErrTooLarge
	}

	p := newProgress(expected)
	var copied int64
	for {
		n, err := io.CopyN(dst, src, chunkSize)
		copied += n
		if limit > 0 && copied > limit {
			return copied, ErrTooLarge
		}
		p.update(copied)
		if errors.Is(err, io.EOF) {
			return copied, nil
		}
		if err != nil {
			return copied, ErrCopying
		}
	}
}

// progress logs copying progress in 25% steps when the full size is known.
type progress struct {
	full    int64
	percent int
}

func newProgress(full int64) *progress {
	return &progress{full: full}
}

func (p *progress) update(current int64) {
	if p.full <= 0 || p.percent >= 100 {
		return
	}
	percent := int(float64(current) / float64(p.full) * 100)
	if percent > 100 {
		percent = 100
	}
	if percent/25 > p.percent/25 {
		log.WithField("percent", percent).Debug("blob upload progress")
	}
	p.percent = percent
}
