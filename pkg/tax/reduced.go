package tax

import (
	"strings"

	"github.com/shunichi-ikebuchi/receipt-journal/pkg/jptext"
)

// ReducedTaxKeywords identify food, non-alcoholic beverage and newspaper items.
// Matching is insensitive to case, character width and kana script.
var ReducedTaxKeywords = []string{
	// 食品
	"食品", "食料", "弁当", "おにぎり", "おむすび", "サンドイッチ", "食パン", "菓子パン", "惣菜", "総菜",
	"寿司", "野菜", "果物", "フルーツ", "精肉", "鮮魚", "牛乳", "乳製品", "卵", "米",
	"菓子", "スナック", "チョコ", "アイス", "ヨーグルト", "調味料", "冷凍食品",
	// 飲料（酒類を除く）
	"飲料", "お茶", "緑茶", "ジュース", "ミネラルウォーター", "天然水", "ソフトドリンク",
	// 持ち帰り
	"テイクアウト", "持ち帰り", "持帰",
	// 新聞
	"新聞",
	"food", "bread", "juice", "newspaper", "take out", "takeout",
}

var reducedTaxKeys = keys(ReducedTaxKeywords)

// IsReducedTaxItem reports whether an item name looks like a reduced-rate item.
// An empty name is never reduced.
func IsReducedTaxItem(name string) bool {
	if name == "" {
		return false
	}
	key := jptext.Key(name)
	for _, kw := range reducedTaxKeys {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func keys(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, jptext.Key(w))
	}
	return out
}
