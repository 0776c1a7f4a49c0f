//go:build property

package build

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var sourceFragments = []interface{}{
	`import { readFileSync } from "node:fs";`,
	`const path = require("node:path");`,
	`const url = import.meta.url;`,
	`import("node:crypto");`,
	`export const x = 1;`,
	`const s = "node_modules";`,
	"\n",
	" ",
}

func genSource() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf(sourceFragments...)).Map(func(parts []string) string {
		return strings.Join(parts, "")
	})
}

func TestTransformSourceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("transform is idempotent", prop.ForAll(
		func(src string) bool {
			once := TransformSource(src)
			return TransformSource(once) == once
		},
		genSource(),
	))

	properties.Property("no import.meta.url or node: specifier survives", prop.ForAll(
		func(src string) bool {
			out := TransformSource(src)
			return !strings.Contains(out, "import.meta.url") &&
				!strings.Contains(out, `"node:`)
		},
		genSource(),
	))

	properties.Property("renamed outputs carry the new extension", prop.ForAll(
		func(base string, ext string) bool {
			renamed := RenameExtension(base+".js", ext)
			return strings.HasSuffix(renamed, ext) && RenameExtension(base+".js", ".js") == base+".js"
		},
		gen.Identifier(),
		gen.OneConstOf(".cjs", ".mjs"),
	))

	properties.TestingRun(t)
}
