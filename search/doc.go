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


// Package search ranks indexed chunks against queries.
//
// The Searcher type implements two retrieval modes:
//   - Semantic search: the query is embedded and matched against the vector
//     index by cosine similarity, with accumulated relevance feedback folded
//     into the final ranking and optional metadata filters applied
//     conjunctively.
//   - Keyword search: case-insensitive substring matching over chunk text,
//     ranked by the count of distinct matching keywords. Works without an
//     embedding provider.
//
// Filtered searches widen the candidate fetch iteratively, so filters reduce
// which chunks qualify without starving the requested result count.
package search
