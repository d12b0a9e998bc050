/*
 * Copyright 2024 The ScopeID Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssertf(t *testing.T) {
	re := require.New(t)

	re.NotPanics(func() { Assertf(true, "never") })
	re.PanicsWithValue("scope:orders, lastID:3", func() { Assertf(false, "scope:%s, lastID:%d", "orders", 3) })
	re.PanicsWithValue("unexpected case", func() { Assert(false) })
}
