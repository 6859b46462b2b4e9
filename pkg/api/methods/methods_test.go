// Zaparoo Autorotate
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Autorotate.
//
// Zaparoo Autorotate is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Autorotate is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Autorotate.  If not, see <http://www.gnu.org/licenses/>.

package methods

import (
	"net/http"
	"testing"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service/autorotate"
	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want int
	}{
		{kind: KindInvalid, want: http.StatusBadRequest},
		{kind: autorotate.KindNoLink, want: http.StatusServiceUnavailable},
		{kind: autorotate.KindCancelled, want: http.StatusServiceUnavailable},
		{kind: autorotate.KindTimeout, want: http.StatusGatewayTimeout},
		{kind: autorotate.KindRefused, want: http.StatusConflict},
		{kind: autorotate.KindUnexpected, want: http.StatusBadGateway},
		{kind: autorotate.KindTransport, want: http.StatusBadGateway},
		{kind: autorotate.KindDisplay, want: http.StatusInternalServerError},
		{kind: autorotate.KindOther, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusCode(tt.kind))
		})
	}
}
