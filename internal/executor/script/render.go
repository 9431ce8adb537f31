package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var funcMap = sprig.TxtFuncMap()

var pyTemplate = template.Must(template.New("vvtest_util.py").Funcs(funcMap).Parse(pyTemplateText))
var shTemplate = template.Must(template.New("vvtest_util.sh").Funcs(funcMap).Parse(shTemplateText))

// RenderPython renders vvtest_util.py's contents from d.
func RenderPython(d Data) (string, error) {
	var buf bytes.Buffer
	if err := pyTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("script: render vvtest_util.py: %w", err)
	}
	return buf.String(), nil
}

// RenderShell renders vvtest_util.sh's contents from d.
func RenderShell(d Data) (string, error) {
	var buf bytes.Buffer
	if err := shTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("script: render vvtest_util.sh: %w", err)
	}
	return buf.String(), nil
}

// WriteFiles renders both vvtest_util.py and vvtest_util.sh and writes them
// into xdir, the one external-interface surface a running test script is
// guaranteed to find regardless of which language it's written in.
func WriteFiles(xdir string, d Data) error {
	py, err := RenderPython(d)
	if err != nil {
		return err
	}
	sh, err := RenderShell(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(xdir, "vvtest_util.py"), []byte(py), 0o644); err != nil {
		return fmt.Errorf("script: write vvtest_util.py: %w", err)
	}
	if err := os.WriteFile(filepath.Join(xdir, "vvtest_util.sh"), []byte(sh), 0o644); err != nil {
		return fmt.Errorf("script: write vvtest_util.sh: %w", err)
	}
	return nil
}

const pyTemplateText = `# generated by vvtest -- do not edit
NAME = {{ .Name | quote }}
TESTID = {{ .TestID | quote }}
PLATFORM = {{ .Platform | quote }}
COMPILER = {{ .Compiler | quote }}
VVTESTSRC = {{ .VVTestSrc | quote }}
TESTROOT = {{ .TestRoot | quote }}
PROJECT = {{ .Project | quote }}
CONFIGDIR = {{ .ConfigDir | quote }}
SRCDIR = {{ .SrcDir | quote }}
OPTIONS = [{{ range .OptionsOn }}{{ . | quote }}, {{ end }}]
OPTIONS_OFF = [{{ range .OptionsOff }}{{ . | quote }}, {{ end }}]
TIMEOUT = {{ .Timeout }}
KEYWORDS = [{{ range .SortedKeywords }}{{ . | quote }}, {{ end }}]

PARAM_DICT = {
{{- range .Params }}
    {{ .Name | quote }} : {{ .PyLiteral }},
{{- end }}
}
{{ range .Params }}{{ .Name }} = {{ .PyLiteral }}
{{ end }}
{{- range .AnalyzeDeps }}
PARAM_{{ .Name }} = {{ .PyLiteral }}
{{- end }}

DEPDIRS = [{{ range .DepDirs }}{{ . | quote }}, {{ end }}]
DEPDIRMAP = {
{{- range .DepDirMap }}
    {{ .Pattern | quote }} : [{{ range .Xdirs }}{{ . | quote }}, {{ end }}],
{{- end }}
}

RESOURCE_np = {{ .CPU.Count }}
RESOURCE_IDS_np = [{{ range .CPU.IDs }}{{ . }}, {{ end }}]
RESOURCE_TOTAL_np = {{ .CPU.Total }}
RESOURCE_ndevice = {{ .Device.Count }}
RESOURCE_IDS_ndevice = [{{ range .Device.IDs }}{{ . }}, {{ end }}]
RESOURCE_TOTAL_ndevice = {{ .Device.Total }}

diff_exit_status = {{ .DiffExitStatus }}
skip_exit_status = {{ .SkipExitStatus }}
opt_analyze = {{ if .OptAnalyze }}True{{ else }}False{{ end }}
`

const shTemplateText = `# generated by vvtest -- do not edit
NAME="{{ .Name }}"
TESTID="{{ .TestID }}"
PLATFORM="{{ .Platform }}"
COMPILER="{{ .Compiler }}"
VVTESTSRC="{{ .VVTestSrc }}"
TESTROOT="{{ .TestRoot }}"
PROJECT="{{ .Project }}"
CONFIGDIR="{{ .ConfigDir }}"
SRCDIR="{{ .SrcDir }}"
OPTIONS="{{ join " " .OptionsOn }}"
OPTIONS_OFF="{{ join " " .OptionsOff }}"
TIMEOUT={{ .Timeout }}
KEYWORDS="{{ join " " .SortedKeywords }}"

PARAM_DICT="{{ range .Params }}{{ .Name }}/{{ .ShellValue }} {{ end }}"
{{ range .Params }}{{ .Name }}="{{ .ShellValue }}"
{{ end }}
{{- range .AnalyzeDeps }}
PARAM_{{ .Name }}="{{ .ShellValue }}"
{{- end }}

DEPDIRS="{{ join " " .DepDirs }}"

RESOURCE_np={{ .CPU.Count }}
RESOURCE_IDS_np="{{ join " " .CPU.IDs }}"
RESOURCE_TOTAL_np={{ .CPU.Total }}
RESOURCE_ndevice={{ .Device.Count }}
RESOURCE_IDS_ndevice="{{ join " " .Device.IDs }}"
RESOURCE_TOTAL_ndevice={{ .Device.Total }}

diff_exit_status={{ .DiffExitStatus }}
skip_exit_status={{ .SkipExitStatus }}
opt_analyze={{ if .OptAnalyze }}1{{ else }}0{{ end }}
`
