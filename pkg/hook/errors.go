package hook

import "errors"

// ErrAccessibilityPermission indicates the host must grant input-monitoring trust.
var ErrAccessibilityPermission = errors.New("input monitoring permission required for keyboard capture")
