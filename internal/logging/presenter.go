// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"

	apperrors "askdb/cli/internal/errors"
)

// PresentError formats an error for user display with masking.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Mask(apperrors.Message(err))
	}
	return fmt.Sprintf("%s: %s", context, Mask(apperrors.Message(err)))
}
