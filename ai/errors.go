// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import "errors"

var (
	// ErrProvider is the base error for provider-side failures (transport,
	// authentication, model errors). Wrapped by implementations so callers
	// can match the class with errors.Is.
	ErrProvider = errors.New("ai provider error")

	// ErrEmptyText indicates an attempt to embed empty text. Embedding empty
	// text would produce a meaningless vector, so it fails instead.
	ErrEmptyText = errors.New("cannot embed empty text")
)
