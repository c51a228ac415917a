package chunker

import "strings"

// pack greedily joins units with sep into pieces of at most size runes. Each new piece
// starts with trailing units of the previous one totalling at most overlap runes.
// Units longer than size become pieces on their own.
func pack(units []string, sep string, size, overlap int) []string {
	var (
		out   []string
		cur   []string
		width int
	)
	sepLen := runeLen(sep)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, strings.Join(cur, sep))
		// carry the overlap tail
		var tail []string
		w := 0
		for i := len(cur) - 1; i >= 0; i-- {
			n := runeLen(cur[i])
			if w+n > overlap || len(tail) == len(cur)-1 {
				break
			}
			tail = append([]string{cur[i]}, tail...)
			w += n + sepLen
		}
		cur = tail
		width = 0
		for i, u := range cur {
			if i > 0 {
				width += sepLen
			}
			width += runeLen(u)
		}
	}
	for _, u := range units {
		n := runeLen(u)
		extra := n
		if len(cur) > 0 {
			extra += sepLen
		}
		if len(cur) > 0 && width+extra > size {
			flush()
			// a carried tail must still leave room for u
			for len(cur) > 0 && width+sepLen+n > size {
				width -= runeLen(cur[0])
				if len(cur) > 1 {
					width -= sepLen
				}
				cur = cur[1:]
			}
			extra = n
			if len(cur) > 0 {
				extra += sepLen
			}
		}
		cur = append(cur, u)
		width += extra
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, sep))
	}
	return out
}

// hardSplit cuts s into pieces of at most size runes, preferring the last space.
func hardSplit(s string, size int) []string {
	rs := []rune(s)
	var out []string
	for len(rs) > size {
		cut := size
		for i := size; i > size/2; i-- {
			if rs[i] == ' ' || rs[i] == '\n' {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(rs[:cut])); piece != "" {
			out = append(out, piece)
		}
		rs = rs[cut:]
	}
	if piece := strings.TrimSpace(string(rs)); piece != "" {
		out = append(out, piece)
	}
	return out
}
