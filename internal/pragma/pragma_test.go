package pragma_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metoffice/fab-go/internal/pragma"
)

func TestInjectPragmasBracketsIncludes(t *testing.T) {
	src := `#include "local.h"
#include <stdio.h>
int main(void) { return 0; }
`
	var out strings.Builder
	require.NoError(t, pragma.InjectPragmas(strings.NewReader(src), &out))

	got := out.String()
	assert.Contains(t, got, "#pragma FAB UsrIncludeStart\n#include \"local.h\"\n#pragma FAB UsrIncludeEnd")
	assert.Contains(t, got, "#pragma FAB SysIncludeStart\n#include <stdio.h>\n#pragma FAB SysIncludeEnd")
	assert.Contains(t, got, "int main(void) { return 0; }")
}

func TestPragFilePath(t *testing.T) {
	assert.Equal(t, "/x/y/foo.prag", string(pragma.PragFilePath("/x/y/foo.c")))
}
