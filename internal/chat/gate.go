package chat

import (
	"strings"
	"unicode"
)

// The extraction gate decides, without a model call, whether a message
// plausibly carries a storable first-person fact. Rules run in order and
// the first match wins; suppression rules sit before positive signals, so
// precedence is load-bearing.

var questionStarters = []string{
	"what", "who", "when", "where", "why", "how",
	"which", "whose", "whom",
	"do you", "can you", "could you", "would you", "will you",
	"should you", "are you", "is there", "did you",
	"tell me", "show me", "help me", "explain",
	"什么", "谁", "何时", "哪里", "为什么", "怎么", "怎样",
	"哪个", "哪些", "谁的",
	"你能", "你会", "你能告诉我", "你能帮我",
	"告诉我", "给我看", "帮我", "解释一下", "解释",
	"请问", "问一下", "想知道", "想了解",
}

var greetingStarters = []string{
	"hello", "hi ", "hi,", "hey", "hey there",
	"good morning", "good afternoon", "good evening", "good night",
	"thanks", "thank you", "thank", "thx",
	"ok", "okay", "sure", "yes", "no", "yeah", "yep", "nope",
	"bye", "goodbye", "see you", "talk later",
	"你好", "您好", "早上好", "下午好", "晚上好", "晚安",
	"谢谢", "多谢", "感谢",
	"好的", "可以", "行", "是的", "不是", "对", "不对",
	"再见", "拜拜", "回头见", "待会见",
}

var metaCommands = []string{
	"clear", "delete", "reset", "forget",
	"remember this", "save this", "store this",
	"清除", "删除", "重置", "忘记",
	"记住这个", "保存这个", "存储这个",
}

var factIndicators = []string{
	// identity
	"i am", "i'm", "my name is", "i was born", "i live in",
	"我是", "我叫", "我出生", "我住在", "我来自",
	// preferences
	"i like", "i love", "i enjoy", "i prefer", "i hate", "i don't like",
	"my favorite", "i want", "i need",
	"我喜欢", "我爱", "我享受", "我更喜欢", "我讨厌", "我不喜欢",
	"我最喜欢", "我想要", "我需要",
	// relationships
	"my ", "my wife", "my husband", "my son", "my daughter",
	"my brother", "my sister", "my friend", "my mother", "my father",
	"我的", "我妻子", "我丈夫", "我儿子", "我女儿",
	"我兄弟", "我姐妹", "我朋友", "我母亲", "我父亲", "我妈妈", "我爸爸",
	// routines
	"i work", "i go to", "i take", "i eat", "i drink", "i play",
	"i watch", "i read", "i listen", "i exercise",
	"every day", "every morning", "every night", "usually",
	"我工作", "我去", "我吃", "我喝", "我玩", "我看", "我读", "我听", "我锻炼",
	"每天", "每天早上", "每天晚上", "通常", "经常",
	// health
	"i have", "i take medication", "my doctor", "i'm allergic",
	"我有", "我吃药", "我服药", "我的医生", "我过敏",
	// past experiences
	"i used to", "i remember", "i grew up", "when i was",
	"i worked at", "i went to", "i met",
	"我以前", "我记得", "我长大", "当我", "我在", "我去过", "我见过",
}

// gateRule evaluates one heuristic. verdict is only meaningful when
// matched is true; unmatched rules defer to the next in the chain.
type gateRule struct {
	name string
	eval func(original, lower string) (verdict, matched bool)
}

var gateRules = []gateRule{
	{"question", func(original, lower string) (bool, bool) {
		if strings.HasSuffix(original, "?") {
			return false, true
		}
		for _, q := range questionStarters {
			if strings.HasPrefix(lower, q) {
				return false, true
			}
		}
		return false, false
	}},
	{"greeting", func(original, lower string) (bool, bool) {
		for _, g := range greetingStarters {
			if strings.HasPrefix(lower, g) {
				return false, true
			}
		}
		return false, false
	}},
	{"meta-command", func(original, lower string) (bool, bool) {
		for _, m := range metaCommands {
			if strings.Contains(lower, m) {
				return false, true
			}
		}
		return false, false
	}},
	{"fact-indicator", func(original, lower string) (bool, bool) {
		for _, ind := range factIndicators {
			if strings.Contains(lower, ind) {
				return true, true
			}
		}
		return false, false
	}},
	{"proper-noun", func(original, lower string) (bool, bool) {
		words := strings.Fields(original)
		if len(words) < 2 {
			return false, false
		}
		for _, w := range words[1:] {
			r := []rune(w)
			if len(r) > 0 && unicode.IsUpper(r[0]) {
				return true, true
			}
		}
		return false, false
	}},
	{"declarative-length", func(original, lower string) (bool, bool) {
		if len(strings.Fields(original)) >= 5 && !strings.HasSuffix(original, "?") {
			return true, true
		}
		return false, false
	}},
}

// ShouldExtract reports whether message is worth an extraction call.
// Pure and deterministic; false is the conservative default.
func ShouldExtract(message string) bool {
	original := strings.TrimSpace(message)
	lower := strings.ToLower(original)
	for _, rule := range gateRules {
		if verdict, matched := rule.eval(original, lower); matched {
			return verdict
		}
	}
	return false
}
