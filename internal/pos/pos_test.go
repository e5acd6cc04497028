package pos

import "testing"

func TestHeuristicTaggerClosedClassWords(t *testing.T) {
	tags := HeuristicTagger{}.Tag([]string{"I", "the", "can", "quickly", "running", "Goose"})
	want := []Class{Pronoun, Determiner, Verb, Adverb, Verb, ProperNoun}
	for i, tag := range tags {
		if tag.Class != want[i] {
			t.Errorf("token %q: class = %v, want %v", tags[i].Token, tag.Class, want[i])
		}
	}
}

func TestHeuristicTaggerDefaultsToNoun(t *testing.T) {
	tags := HeuristicTagger{}.Tag([]string{"table"})
	if tags[0].Class != Noun {
		t.Fatalf("class = %v, want Noun", tags[0].Class)
	}
}

func TestIsOpenClass(t *testing.T) {
	open := []Class{Noun, ProperNoun, Verb, Adjective, Adverb, Pronoun, Determiner}
	for _, c := range open {
		if !c.IsOpenClass() {
			t.Errorf("%v should be open class", c)
		}
	}
	if Other.IsOpenClass() {
		t.Errorf("Other should not be open class")
	}
}

func TestTagEmptyTokenIsOther(t *testing.T) {
	tags := HeuristicTagger{}.Tag([]string{"..."})
	if tags[0].Class != Other {
		t.Fatalf("class = %v, want Other", tags[0].Class)
	}
}
