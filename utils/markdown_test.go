/*
 * Copyright 2025 tomoncle.
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
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML("# Dune\n\nA **desert** planet.")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Dune</h1>")
	assert.Contains(t, out, "<strong>desert</strong>")
}

func TestMarkdownToHTMLSanitizes(t *testing.T) {
	out, err := MarkdownToHTML("hello <script>alert(1)</script> <a href=\"javascript:alert(1)\">x</a>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.False(t, strings.Contains(out, "javascript:"))
}

func TestMarkdownToHTMLEmpty(t *testing.T) {
	out, err := MarkdownToHTML("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "bold text", StripHTML("<b>bold</b> text"))
}
