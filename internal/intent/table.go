// Package intent guesses what a free-text prompt is asking for: its
// language, an implicit agent or skill, a new feature, and how ambiguous
// it is. All localized phrases live in Table.
package intent

// Language is an ISO 639-1 code.
type Language string

const (
	English  Language = "en"
	Korean   Language = "ko"
	Japanese Language = "ja"
	Chinese  Language = "zh"
	Spanish  Language = "es"
	French   Language = "fr"
	German   Language = "de"
	Italian  Language = "it"
)

// Languages lists the supported languages in match order.
var Languages = []Language{English, Korean, Japanese, Chinese, Spanish, French, German, Italian}

// Intent names a trigger phrase set.
type Intent string

// Agent intents.
const (
	GapDetector     Intent = "gap-detector"
	PdcaIterator    Intent = "pdca-iterator"
	CodeAnalyzer    Intent = "code-analyzer"
	ReportGenerator Intent = "report-generator"
	StarterGuide    Intent = "starter-guide"
)

// Skill intents.
const (
	SkillStarter    Intent = "starter"
	SkillDynamic    Intent = "dynamic"
	SkillEnterprise Intent = "enterprise"
	SkillMobileApp  Intent = "mobile-app"
)

// NewFeature marks a request to start a feature.
const NewFeature Intent = "new-feature"

// Agents and Skills fix the order in which intents are tried.
var (
	Agents = []Intent{GapDetector, PdcaIterator, CodeAnalyzer, ReportGenerator, StarterGuide}
	Skills = []Intent{SkillStarter, SkillDynamic, SkillEnterprise, SkillMobileApp}
)

// Table maps language → intent → phrases. Matching is a case-insensitive
// substring test.
var Table = map[Language]map[Intent][]string{
	English: {
		GapDetector:     {"verify", "check", "gap", "compare", "validate"},
		PdcaIterator:    {"improve", "iterate", "fix", "auto-fix", "optimize"},
		CodeAnalyzer:    {"analyze", "quality", "security", "code review", "any issues?"},
		ReportGenerator: {"report", "summary", "status", "what did we do?", "progress"},
		StarterGuide:    {"help", "beginner", "first time", "how to", "explain"},
		SkillStarter:    {"static site", "simple website", "landing page", "portfolio"},
		SkillDynamic:    {"login", "fullstack", "database", "authentication", "backend"},
		SkillEnterprise: {"microservices", "kubernetes", "k8s", "terraform", "architecture"},
		SkillMobileApp:  {"mobile app", "react native", "flutter", "ios", "android"},
		NewFeature:      {"new feature", "add feature", "create feature", "implement", "build"},
	},
	Korean: {
		GapDetector:     {"검증", "확인", "갭", "비교", "검사", "맞아?", "이거 괜찮아?"},
		PdcaIterator:    {"개선", "반복", "수정", "자동 수정", "고쳐줘", "개선해줘"},
		CodeAnalyzer:    {"분석", "품질", "보안", "코드 리뷰", "이상해", "뭔가 이상해"},
		ReportGenerator: {"보고서", "요약", "상태", "뭐 했어?", "진행 상황"},
		StarterGuide:    {"도움", "초보자", "처음", "어떻게", "설명해", "모르겠"},
		SkillStarter:    {"정적 사이트", "간단한 웹사이트", "랜딩 페이지", "포트폴리오"},
		SkillDynamic:    {"로그인", "풀스택", "데이터베이스", "인증", "백엔드"},
		SkillEnterprise: {"마이크로서비스", "쿠버네티스", "테라폼", "아키텍처"},
		SkillMobileApp:  {"모바일 앱", "리액트 네이티브", "플러터", "iOS", "안드로이드"},
		NewFeature:      {"새 기능", "기능 추가", "기능 만들기", "구현", "개발"},
	},
	Japanese: {
		GapDetector:     {"検証", "確認", "ギャップ", "比較", "正しい?", "合ってる?"},
		PdcaIterator:    {"改善", "反復", "修正", "自動修正", "直して", "もっと良く"},
		CodeAnalyzer:    {"分析", "品質", "セキュリティ", "コードレビュー", "おかしい"},
		ReportGenerator: {"報告書", "要約", "状態", "何をした?", "進捗"},
		StarterGuide:    {"助けて", "初心者", "初めて", "どうやって", "説明して", "わからない"},
		SkillStarter:    {"静的サイト", "シンプルなウェブサイト", "ランディングページ"},
		SkillDynamic:    {"ログイン", "フルスタック", "データベース", "認証", "バックエンド"},
		SkillEnterprise: {"マイクロサービス", "クバネティス", "テラフォーム", "アーキテクチャ"},
		SkillMobileApp:  {"モバイルアプリ", "React Native", "Flutter", "iOS", "Android"},
		NewFeature:      {"新機能", "機能追加", "機能を作る", "実装", "開発"},
	},
	Chinese: {
		GapDetector:     {"验证", "确认", "差距", "比较", "对吗?", "对不对?"},
		PdcaIterator:    {"改进", "迭代", "修复", "自动修复", "优化"},
		CodeAnalyzer:    {"分析", "质量", "安全", "代码审查", "有问题?"},
		ReportGenerator: {"报告", "摘要", "状态", "做了什么?", "进度"},
		StarterGuide:    {"帮助", "初学者", "第一次", "怎么", "解释", "不懂"},
		SkillStarter:    {"静态网站", "简单网站", "着陆页", "作品集"},
		SkillDynamic:    {"登录", "全栈", "数据库", "认证", "后端"},
		SkillEnterprise: {"微服务", "kubernetes", "terraform", "架构"},
		SkillMobileApp:  {"移动应用", "React Native", "Flutter", "iOS", "Android"},
		NewFeature:      {"新功能", "添加功能", "创建功能", "实现", "开发"},
	},
	Spanish: {
		GapDetector:     {"verificar", "comprobar", "brecha", "comparar", "está bien?"},
		PdcaIterator:    {"mejorar", "iterar", "arreglar", "auto-arreglar", "optimizar"},
		CodeAnalyzer:    {"analizar", "calidad", "seguridad", "revisión de código", "hay problemas?"},
		ReportGenerator: {"informe", "resumen", "estado", "qué hicimos?", "progreso"},
		StarterGuide:    {"ayuda", "principiante", "primera vez", "cómo", "explicar", "no entiendo"},
		SkillStarter:    {"sitio estático", "sitio web simple", "página de destino"},
		SkillDynamic:    {"iniciar sesión", "fullstack", "base de datos", "autenticación"},
		SkillEnterprise: {"microservicios", "kubernetes", "terraform", "arquitectura"},
		SkillMobileApp:  {"aplicación móvil", "react native", "flutter", "ios", "android"},
		NewFeature:      {"nueva función", "agregar función", "crear función", "implementar"},
	},
	French: {
		GapDetector:     {"vérifier", "contrôler", "écart", "comparer", "c'est correct?"},
		PdcaIterator:    {"améliorer", "itérer", "corriger", "auto-corriger", "optimiser"},
		CodeAnalyzer:    {"analyser", "qualité", "sécurité", "revue de code", "il y a des problèmes?"},
		ReportGenerator: {"rapport", "résumé", "statut", "qu'avons-nous fait?", "progrès"},
		StarterGuide:    {"aide", "débutant", "première fois", "comment", "expliquer", "je ne comprends pas"},
		SkillStarter:    {"site statique", "site web simple", "page de destination"},
		SkillDynamic:    {"connexion", "fullstack", "base de données", "authentification"},
		SkillEnterprise: {"microservices", "kubernetes", "terraform", "architecture"},
		SkillMobileApp:  {"application mobile", "react native", "flutter", "ios", "android"},
		NewFeature:      {"nouvelle fonction", "ajouter fonction", "créer fonction", "implémenter"},
	},
	German: {
		GapDetector:     {"prüfen", "überprüfen", "Lücke", "vergleichen", "ist das richtig?"},
		PdcaIterator:    {"verbessern", "iterieren", "reparieren", "auto-reparieren", "optimieren"},
		CodeAnalyzer:    {"analysieren", "Qualität", "Sicherheit", "Code-Review", "gibt es Probleme?"},
		ReportGenerator: {"Bericht", "Zusammenfassung", "Status", "was haben wir?", "Fortschritt"},
		StarterGuide:    {"Hilfe", "Anfänger", "erste Mal", "wie", "erklären", "verstehe nicht"},
		SkillStarter:    {"statische Seite", "einfache Website", "Landingpage"},
		SkillDynamic:    {"Anmeldung", "Fullstack", "Datenbank", "Authentifizierung"},
		SkillEnterprise: {"Microservices", "Kubernetes", "Terraform", "Architektur"},
		SkillMobileApp:  {"mobile App", "React Native", "Flutter", "iOS", "Android"},
		NewFeature:      {"neue Funktion", "Funktion hinzufügen", "Funktion erstellen", "implementieren"},
	},
	Italian: {
		GapDetector:     {"verificare", "controllare", "divario", "confrontare", "è giusto?"},
		PdcaIterator:    {"migliorare", "iterare", "correggere", "auto-correggere", "ottimizzare"},
		CodeAnalyzer:    {"analizzare", "qualità", "sicurezza", "revisione codice", "ci sono problemi?"},
		ReportGenerator: {"rapporto", "riepilogo", "stato", "cosa abbiamo fatto?", "progresso"},
		StarterGuide:    {"aiuto", "principiante", "prima volta", "come", "spiegare", "non capisco"},
		SkillStarter:    {"sito statico", "sito web semplice", "landing page"},
		SkillDynamic:    {"accesso", "fullstack", "database", "autenticazione"},
		SkillEnterprise: {"microservizi", "kubernetes", "terraform", "architettura"},
		SkillMobileApp:  {"app mobile", "react native", "flutter", "ios", "android"},
		NewFeature:      {"nuova funzione", "aggiungere funzione", "creare funzione", "implementare"},
	},
}

// Phrases returns every phrase for intent across languages, deduplicated,
// in language order.
func Phrases(intent Intent) []string {
	seen := map[string]bool{}
	var out []string
	for _, lang := range Languages {
		for _, p := range Table[lang][intent] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Keywords returns intent's phrases for lang, falling back to English.
func Keywords(lang Language, intent Intent) []string {
	if p := Table[lang][intent]; len(p) > 0 {
		return p
	}
	return Table[English][intent]
}
