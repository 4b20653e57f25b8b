package normalize

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

const plainTextMime = "text/plain"

// ExtractBodyText 从消息的 MIME 部件树中提取第一段可用的纯文本正文。
//
// 深度优先、从左到右遍历：
//  1. 节点自带内联正文时直接解码返回；
//  2. 否则依次检查子部件：类型恰为 text/plain 且带正文的直接返回，
//     带嵌套子部件的递归下钻，取第一个非空结果；
//  3. 整棵树都没有可用文本时返回空字符串。
//
// 真实邮件会任意嵌套 multipart/alternative 和 multipart/mixed，
// 纯文本通常是深度优先遍历中最早出现的同类叶子。
// 任意层级的字段缺失都按"跳过"处理，单个畸形部件不会使整条消息失败。
func ExtractBodyText(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBodyData(payload.Body.Data)
	}

	for _, part := range payload.Parts {
		if part == nil {
			continue
		}
		if part.MimeType == plainTextMime && part.Body != nil && part.Body.Data != "" {
			return decodeBodyData(part.Body.Data)
		}
		if len(part.Parts) > 0 {
			if text := ExtractBodyText(part); text != "" {
				return text
			}
		}
	}

	return ""
}

// decodeBodyData 解码 Gmail API 返回的 URL 安全 base64 正文。
//
// 兼容带填充和不带填充两种形式；解码失败返回空串，
// 非法 UTF-8 字节序列被剔除，永不报错。
func decodeBodyData(data string) string {
	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return strings.ToValidUTF8(string(raw), "")
}
