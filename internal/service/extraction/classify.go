package extraction

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// classify maps an attempt error to an extraction error kind.
// Errors already classified by the provider adapter are kept as is.
func classify(err error) *domain.ExtractionError {
	var ee *domain.ExtractionError
	if errors.As(err, &ee) {
		return ee
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewExtractionError(domain.ExtractionTimeout, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.NewExtractionError(domain.ExtractionNetwork, err)
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.NewExtractionError(domain.ExtractionNetwork, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.NewExtractionError(domain.ExtractionTimeout, err)
		}
		return domain.NewExtractionError(domain.ExtractionNetwork, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "network request failed") || strings.Contains(msg, "connection reset") {
		return domain.NewExtractionError(domain.ExtractionNetwork, err)
	}

	return domain.NewExtractionError(domain.ExtractionUpstream, err)
}
