package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "leading explanation leaves the block",
			in:   "```python\n下面是示例：\nimport os\n```",
			want: "下面是示例：\n```python\nimport os\n```",
		},
		{
			name: "explanation after code stays inside",
			in:   "```bash\nmake\n下面是说明：\n```",
			want: "```bash\nmake\n下面是说明：\n```",
		},
		{
			name: "command with trailing lead-in is split",
			in:   "```bash\ngit clone https://x/y.git 使用 CMake 构建：\ncmake -S . -B build\n```",
			want: "```bash\ngit clone https://x/y.git\n```\n使用 CMake 构建：\n```bash\ncmake -S . -B build\n```",
		},
		{
			name: "prose-only block is demoted",
			in:   "```text\n  这里只是说明。\n\n```",
			want: "这里只是说明。",
		},
		{
			name: "blank block is dropped",
			in:   "前\n```cpp\n\n\n```\n后",
			want: "前\n后",
		},
		{
			name: "blank edges are trimmed",
			in:   "```cpp\n\nint x = 1;\n\n```",
			want: "```cpp\nint x = 1;\n```",
		},
		{
			name: "json body is kept",
			in:   "```json\n{\"a\": 1}\n```",
			want: "```json\n{\"a\": 1}\n```",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}
