package report

// Messages is the text of every comment in one language.
type Messages struct {
	LinksHeading    string
	LinksColumns    [3]string
	LinksFooter     string
	LinksOK         string
	LinksError      string
	FailedHeading   string
	PSIHeading      string
	PSIAnalyzedAt   string
	PSISite         string
	PSIFileCount    string
	AuditHeading    string
	AuditMetrics    string
	AuditFindings   string
	AuditBelowMin   string
	AuditFailed     string
	AuditAllPassing string
}

var catalog = map[string]Messages{
	"en": {
		LinksHeading:    "## 🔍 Broken link check results",
		LinksColumns:    [3]string{"File", "Broken link", "Info"},
		LinksFooter:     "⚠️ Broken links were found. Please fix them.",
		LinksOK:         "✅ No broken links were found.",
		LinksError:      "⚠️ An error occurred while checking links. Please check the logs.",
		FailedHeading:   "### Pages that could not be checked",
		PSIHeading:      "## PageSpeed Insights results",
		PSIAnalyzedAt:   "Analyzed at",
		PSISite:         "Site",
		PSIFileCount:    "Files analyzed",
		AuditHeading:    "## Page audit results",
		AuditMetrics:    "Metrics",
		AuditFindings:   "Findings",
		AuditBelowMin:   "below minimum",
		AuditFailed:     "audit failed",
		AuditAllPassing: "✅ All pages meet the minimum scores.",
	},
	"ja": {
		LinksHeading:    "## 🔍 リンク切れチェック結果",
		LinksColumns:    [3]string{"ファイル名", "リンク切れパス", "その他情報"},
		LinksFooter:     "⚠️ リンク切れが見つかりました。修正をお願いします。",
		LinksOK:         "✅ リンク切れは見つかりませんでした。",
		LinksError:      "⚠️ リンク切れチェック中にエラーが発生しました。ログを確認してください。",
		FailedHeading:   "### チェックできなかったページ",
		PSIHeading:      "## PageSpeed Insights 結果",
		PSIAnalyzedAt:   "分析日時",
		PSISite:         "分析サイト",
		PSIFileCount:    "分析ファイル数",
		AuditHeading:    "## ページ監査結果",
		AuditMetrics:    "計測値",
		AuditFindings:   "指摘事項",
		AuditBelowMin:   "基準値未満",
		AuditFailed:     "監査に失敗しました",
		AuditAllPassing: "✅ すべてのページが基準スコアを満たしています。",
	},
}

// For returns the messages for lang, falling back to English.
func For(lang string) Messages {
	if m, ok := catalog[lang]; ok {
		return m
	}
	return catalog["en"]
}
