package memory

import "time"

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
