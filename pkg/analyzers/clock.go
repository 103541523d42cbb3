// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import "time"

// nowEpoch is indirected so tests can pin "now" without a real clock
// dependency.
var nowEpoch = func() int64 { return time.Now().Unix() }
