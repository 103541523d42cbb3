// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	aurhelp "github.com/kraklabs/traur/internal/testing"
)

func TestAurComments_SecurityKeyword(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	ctx.AurComments = []string{"great package, thanks!", "this looks like malware, avoid"}
	assert.Contains(t, signalIDs(AurComments{}.Analyze(ctx)), "M-COMMENTS-SECURITY")
}

func TestAurComments_CaseInsensitive(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	ctx.AurComments = []string{"possible BACKDOOR in the install script"}
	assert.Contains(t, signalIDs(AurComments{}.Analyze(ctx)), "M-COMMENTS-SECURITY")
}

func TestAurComments_NoKeywordNoSignal(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	ctx.AurComments = []string{"works great on my machine", "thanks for maintaining this"}
	assert.Empty(t, AurComments{}.Analyze(ctx))
}

func TestAurComments_ExcerptTruncated(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	long := strings.Repeat("x", 200) + " malicious"
	ctx.AurComments = []string{long}
	signals := AurComments{}.Analyze(ctx)
	assert.Len(t, signals, 1)
	assert.True(t, strings.HasSuffix(signals[0].MatchedLine, "..."))
	assert.LessOrEqual(t, len(signals[0].MatchedLine), commentExcerptLimit+3)
}
