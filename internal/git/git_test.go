package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/src/cache.rs b/src/cache.rs
index 1111111..2222222 100644
--- a/src/cache.rs
+++ b/src/cache.rs
@@ -10,0 +11,3 @@ impl Cache {
+    fn a() {}
+    fn b() {}
+    fn c() {}
@@ -40 +43 @@ impl Cache {
-    fn old() {}
+    fn new() {}
diff --git a/src/gone.rs b/src/gone.rs
deleted file mode 100644
--- a/src/gone.rs
+++ /dev/null
@@ -1,2 +0,0 @@
-struct Gone;
-
diff --git a/README.md b/README.md
--- a/README.md
+++ b/README.md
@@ -1 +1,0 @@
-old title
`

func TestParseDiff(t *testing.T) {
	changes, err := parseDiff([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "src/cache.rs", changes[0].Path)
	assert.Equal(t, []int{11, 12, 13, 43}, changes[0].ChangedLines)

	assert.Equal(t, "README.md", changes[1].Path)
	assert.Empty(t, changes[1].ChangedLines)
}

func TestParseDiff_Empty(t *testing.T) {
	changes, err := parseDiff(nil)
	require.NoError(t, err)
	assert.Empty(t, changes)
}
