/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "errors"

// Structural errors are returned before any mutation happens.
var (
	ErrSlotOccupied      = errors.New("target slot is already occupied")
	ErrInvalidDimension  = errors.New("grid dimensions must be at least 1x1")
	ErrLastPageProtected = errors.New("the last page cannot be deleted")
	ErrPageOutOfRange    = errors.New("page index out of range")
	ErrSlotOutOfRange    = errors.New("slot index out of range")
	ErrItemNotFound      = errors.New("image not found")
)

// Per-image and per-page failures. Export recovers from these locally.
var (
	ErrDecodeFailed     = errors.New("image decode failed")
	ErrLayoutInfeasible = errors.New("page too small for grid")
)

// Terminal export failures.
var (
	ErrExportInProgress = errors.New("an export is already in progress")
	ErrEmptyDocument    = errors.New("nothing to export")
)
