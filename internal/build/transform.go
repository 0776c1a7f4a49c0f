package build

import (
	"encoding/base64"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ImportMetaURL replaces import.meta.url, which CommonJS output cannot
// express. The banner defines it.
const ImportMetaURL = "__devkit_import_meta_url"

// Banner is prepended to every bundle. It defines the import.meta.url
// replacement and a minimal process object for code that expects Node.
const Banner = `var ` + ImportMetaURL + ` = typeof __filename !== "undefined" ? require("url").pathToFileURL(__filename).href : (typeof document !== "undefined" && document.currentScript && document.currentScript.src) || "";
var process = globalThis.process || { env: {}, platform: "browser", cwd: function () { return "/"; } };`

var (
	importMetaURLPattern = regexp.MustCompile(`\bimport\.meta\.url\b`)
	nodePrefixPattern    = regexp.MustCompile(`((?:\brequire\s*\(|\bimport\s*\(|\bfrom|\bimport)\s*)(["'])node:([^"']+)(["'])`)
	relativeJSPattern    = regexp.MustCompile(`(\brequire\s*\(\s*["'])(\.{1,2}/[^"']+)\.js(["'])`)
	sourceMapURLPattern  = regexp.MustCompile(`(?m)^//# sourceMappingURL=data:application/json;base64,([A-Za-z0-9+/=]+)\s*$`)
)

// TransformSource applies the per-file source rewrites: import.meta.url
// becomes the banner-defined variable and "node:" specifiers lose their
// prefix so the host's require resolves them.
func TransformSource(src string) string {
	src = importMetaURLPattern.ReplaceAllString(src, ImportMetaURL)
	return nodePrefixPattern.ReplaceAllString(src, "$1$2$3$4")
}

// RenameExtension returns name with its .js extension replaced by ext.
func RenameExtension(name, ext string) string {
	if ext == "" || ext == ".js" {
		return name
	}
	if strings.HasSuffix(name, ".js.map") {
		return strings.TrimSuffix(name, ".js.map") + ext + ".map"
	}
	if strings.HasSuffix(name, ".js") {
		return strings.TrimSuffix(name, ".js") + ext
	}
	return name
}

// RewriteRelativeRequires points relative require("./x.js") calls at the
// renamed extension.
func RewriteRelativeRequires(code, ext string) string {
	if ext == "" || ext == ".js" {
		return code
	}
	return relativeJSPattern.ReplaceAllString(code, "${1}${2}"+ext+"${3}")
}

// SourceURLPrefix returns the URL prefix the host uses for a plugin's
// sources in developer tools.
func SourceURLPrefix(pluginID string) string {
	return "app://obsidian.md/plugin:" + pluginID + "/"
}

// FixSourceMap rewrites the sources of an inline source map so the host's
// developer tools show project paths. outDir is the output directory
// relative to the project root; esbuild records sources relative to it.
// Code without an inline map is returned unchanged.
func FixSourceMap(code, outDir, prefix string) (string, error) {
	loc := sourceMapURLPattern.FindStringSubmatchIndex(code)
	if loc == nil {
		return code, nil
	}

	raw, err := base64.StdEncoding.DecodeString(code[loc[2]:loc[3]])
	if err != nil {
		return "", err
	}

	fixed := string(raw)
	var setErr error
	gjson.Get(fixed, "sources").ForEach(func(key, value gjson.Result) bool {
		source := ProjectSource(outDir, value.String())
		if !strings.Contains(source, "://") {
			source = prefix + source
		}
		fixed, setErr = sjson.Set(fixed, "sources."+strconv.Itoa(int(key.Int())), source)
		return setErr == nil
	})
	if setErr != nil {
		return "", setErr
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(fixed))
	return code[:loc[2]] + encoded + code[loc[3]:], nil
}

// ProjectSource resolves a source map entry recorded relative to outDir
// into a slash-separated path relative to the project root.
func ProjectSource(outDir, source string) string {
	if strings.Contains(source, "://") {
		return source
	}
	joined := path.Join(filepath.ToSlash(outDir), source)
	return strings.TrimPrefix(path.Clean(joined), "./")
}
