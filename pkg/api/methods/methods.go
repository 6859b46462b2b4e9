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

// Package methods implements the HTTP handlers of the local API.
package methods

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/orientation"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service"
	"github.com/ZaparooProject/zaparoo-autorotate/pkg/service/autorotate"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// KindInvalid marks a request the API rejected before reaching the device.
const KindInvalid = "invalid"

// maxBodySize limits request bodies; the largest is a port name.
const maxBodySize = 4 << 10

// StatusCode maps an error kind to the HTTP status returned for it.
func StatusCode(kind string) int {
	switch kind {
	case KindInvalid:
		return http.StatusBadRequest
	case autorotate.KindNoLink, autorotate.KindCancelled:
		return http.StatusServiceUnavailable
	case autorotate.KindTimeout:
		return http.StatusGatewayTimeout
	case autorotate.KindRefused:
		return http.StatusConflict
	case autorotate.KindUnexpected, autorotate.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, kind string, err error) {
	writeJSON(w, StatusCode(kind), models.ErrorResponse{
		Error: err.Error(),
		Kind:  kind,
	})
}

// Status builds the current status snapshot.
func Status(svc *service.Service) models.StatusResponse {
	m := svc.Machine()
	o := m.Orientation()
	return models.StatusResponse{
		Port:        m.Port(),
		Orientation: o.String(),
		Degrees:     o.Degrees(),
		Threshold:   m.Threshold(),
		Connected:   svc.Connected(),
		Enabled:     m.Enabled(),
	}
}

func HandleStatus(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Status(svc))
	}
}

func HandlePorts(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ports, err := svc.Ports()
		if err != nil {
			writeError(w, autorotate.KindOther, err)
			return
		}
		if ports == nil {
			ports = []string{}
		}
		writeJSON(w, http.StatusOK, models.PortsResponse{
			Current: svc.Machine().Port(),
			Ports:   ports,
		})
	}
}

func HandleOpenPort(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeError(w, KindInvalid, err)
			return
		}

		var params models.PortParams
		if err := validation.ValidateAndUnmarshal(body, &params); err != nil {
			writeError(w, KindInvalid, err)
			return
		}

		log.Info().Str("port", params.Port).Msg("API: open port")
		if err := svc.OpenPort(params.Port); err != nil {
			writeError(w, autorotate.KindTransport, err)
			return
		}
		writeJSON(w, http.StatusOK, Status(svc))
	}
}

func HandleRotate(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := orientation.Parse(chi.URLParam(r, "orientation"))
		if err != nil {
			writeError(w, KindInvalid, err)
			return
		}

		log.Info().Stringer("orientation", o).Msg("API: rotate")
		if err := svc.Machine().Rotate(o); err != nil {
			writeError(w, autorotate.Kind(err), err)
			return
		}
		writeJSON(w, http.StatusOK, Status(svc))
	}
}

func HandleToggle(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("API: toggle autorotate")
		enabled, err := svc.Machine().Toggle(r.Context())
		if err != nil {
			writeError(w, autorotate.Kind(err), err)
			return
		}
		writeJSON(w, http.StatusOK, models.AutorotateChangedParams{Enabled: enabled})
	}
}

func HandleTest(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("API: test link")
		if err := svc.Machine().TestLink(r.Context()); err != nil {
			writeError(w, autorotate.Kind(err), err)
			return
		}
		writeJSON(w, http.StatusOK, models.LinkTestedParams{OK: true, Response: "ACK"})
	}
}

func HandleQuery(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("API: query device")
		running, err := svc.Machine().QueryStatus(r.Context())
		if err != nil {
			writeError(w, autorotate.Kind(err), err)
			return
		}
		writeJSON(w, http.StatusOK, models.DeviceStatusParams{Running: running})
	}
}

func HandleRecalibrate(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("API: recalibrate")
		if err := svc.Machine().Recalibrate(r.Context()); err != nil {
			writeError(w, autorotate.Kind(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
