package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// 原地改写 PDF 中随时间或随机变化的字段。替换值与原值等长，因此 xref 偏移无需重算。
var (
	pdfDatePattern = regexp.MustCompile(`/(?:CreationDate|ModDate)\s*\((D:[^)]*)\)`)
	xmpDatePattern = regexp.MustCompile(`<xmp:(?:CreateDate|ModifyDate|MetadataDate)>([^<]*)</xmp:`)
	xmpUUIDPattern = regexp.MustCompile(`uuid:([0-9a-fA-F-]{36})`)
	trailerID      = regexp.MustCompile(`/ID\s*\[\s*<([0-9a-fA-F]*)>\s*<([0-9a-fA-F]*)>\s*\]`)
)

const epochDigits = "19700101000000"

// Normalize 返回确定性的 PDF：日期统一为 1970-01-01，文档 ID 由内容哈希派生。
func Normalize(data []byte) []byte {
	out := bytes.Clone(data)

	rewriteGroups(out, pdfDatePattern, func(b []byte) { fixDigits(b) })
	rewriteGroups(out, xmpDatePattern, func(b []byte) { fixDigits(b) })

	// 先清零 ID，再以整份内容的哈希回填，保证相同内容得到相同 ID。
	rewriteGroups(out, trailerID, fillZeros)
	rewriteGroups(out, xmpUUIDPattern, fillZeros)

	sum := sha256.Sum256(out)
	digest := hex.EncodeToString(sum[:])
	rewriteGroups(out, trailerID, func(b []byte) { fillHex(b, digest) })
	rewriteGroups(out, xmpUUIDPattern, func(b []byte) { fillHex(b, digest) })

	return out
}

// rewriteGroups 对每个匹配的捕获组原地调用 fn。
func rewriteGroups(data []byte, re *regexp.Regexp, fn func([]byte)) {
	for _, idx := range re.FindAllSubmatchIndex(data, -1) {
		for g := 2; g+1 < len(idx); g += 2 {
			if idx[g] < 0 {
				continue
			}
			fn(data[idx[g]:idx[g+1]])
		}
	}
}

// fixDigits 按顺序将数字替换为 19700101000000，其余数字（时区等）置 0。
func fixDigits(b []byte) {
	n := 0
	for i, c := range b {
		if c < '0' || c > '9' {
			continue
		}
		if n < len(epochDigits) {
			b[i] = epochDigits[n]
		} else {
			b[i] = '0'
		}
		n++
	}
}

func fillZeros(b []byte) {
	for i, c := range b {
		if c != '-' {
			b[i] = '0'
		}
	}
}

func fillHex(b []byte, digest string) {
	n := 0
	for i, c := range b {
		if c == '-' {
			continue
		}
		b[i] = digest[n%len(digest)]
		n++
	}
}
