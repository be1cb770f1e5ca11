package drive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	appErr "github.com/xxxsen/justnotes/internal/pkg/errors"
)

// wrapErr classifies a transport error. Missing files map to ErrNotFound,
// everything else to ErrRemote; the googleapi error stays in the chain.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %w", op, appErr.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, appErr.ErrRemote, err)
}
