package grading

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// 作答经 JSON 解码后可能是 string、float64、bool、[]any 或 map[string]any，
// 以下函数把它们收敛为各题型需要的形态，失败时返回 ok=false

func parseID(v any) (uint, bool) {
	switch t := v.(type) {
	case uint:
		return t, true
	case int:
		if t < 0 {
			return 0, false
		}
		return uint(t), true
	case int64:
		if t < 0 {
			return 0, false
		}
		return uint(t), true
	case float64:
		if t < 0 || t != math.Trunc(t) || t > math.MaxUint32 {
			return 0, false
		}
		return uint(t), true
	case json.Number:
		return parseID(t.String())
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

// parseIDList 任一元素非法则整体视为无法解析，字符串中的空段除外
func parseIDList(v any) ([]uint, bool) {
	switch t := v.(type) {
	case []uint:
		return t, true
	case []int:
		out := make([]uint, 0, len(t))
		for _, e := range t {
			id, ok := parseID(e)
			if !ok {
				return nil, false
			}
			out = append(out, id)
		}
		return out, true
	case []string:
		out := make([]uint, 0, len(t))
		for _, e := range t {
			id, ok := parseID(e)
			if !ok {
				return nil, false
			}
			out = append(out, id)
		}
		return out, true
	case []any:
		out := make([]uint, 0, len(t))
		for _, e := range t {
			id, ok := parseID(e)
			if !ok {
				return nil, false
			}
			out = append(out, id)
		}
		return out, true
	case string:
		// 逗号分隔，空段忽略
		parts := make([]string, 0, strings.Count(t, ",")+1)
		for _, p := range strings.Split(strings.ReplaceAll(t, " ", ""), ",") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		return parseIDList(parts)
	}
	// 单个 id 也按长度为 1 的列表处理
	if id, ok := parseID(v); ok {
		return []uint{id}, true
	}
	return nil, false
}

func parseBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(t)))
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

func parseText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

// parseMapping 支持 {left: right}、[{left, right}]、[[left, right]] 以及 "left=right" 多行文本
func parseMapping(v any) (map[string]string, bool) {
	out := make(map[string]string)
	switch t := v.(type) {
	case map[string]string:
		for l, r := range t {
			out[strings.TrimSpace(l)] = strings.TrimSpace(r)
		}
	case map[string]any:
		for l, r := range t {
			if s, ok := parseText(r); ok {
				out[strings.TrimSpace(l)] = strings.TrimSpace(s)
			}
		}
	case []any:
		for _, e := range t {
			l, r, ok := parsePair(e)
			if ok {
				out[l] = r
			}
		}
	case string:
		for _, line := range strings.Split(t, "\n") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			l := strings.TrimSpace(parts[0])
			if l == "" {
				continue
			}
			out[l] = strings.TrimSpace(parts[1])
		}
	default:
		return nil, false
	}
	return out, true
}

func parsePair(v any) (string, string, bool) {
	switch t := v.(type) {
	case map[string]any:
		l, lok := parseText(t["left"])
		r, rok := parseText(t["right"])
		if !lok || !rok {
			return "", "", false
		}
		return strings.TrimSpace(l), strings.TrimSpace(r), true
	case []any:
		if len(t) != 2 {
			return "", "", false
		}
		l, lok := parseText(t[0])
		r, rok := parseText(t[1])
		if !lok || !rok {
			return "", "", false
		}
		return strings.TrimSpace(l), strings.TrimSpace(r), true
	}
	return "", "", false
}
