package prompt

import (
	"fmt"

	"github.com/phrazzld/scry-analyzer/internal/domain"
)

// Locale selects the language of the prompt templates.
type Locale string

// Supported locales.
const (
	LocaleRU Locale = "ru"
	LocaleEN Locale = "en"
)

// template holds the fixed texts for one task type in one locale.
type template struct {
	// persona is the system turn text.
	persona string
	// instruction opens the user turn.
	instruction string
	// ownLabel labels payload item 0 (the analysed product card).
	ownLabel string
	// competitorLabel labels payload items after the first.
	competitorLabel string
}

var templates = map[Locale]map[domain.TaskType]template{
	LocaleRU: {
		domain.TaskTypePhoto: {
			persona: "Вы — эксперт по анализу фотографий в карточках товаров на маркетплейсах, способный выявлять сильные и слабые стороны визуального контента с учетом его влияния на покупательское поведение. Ваши ответы всегда уникальны, избегают шаблонных фраз и повторов, а вместо отказов (например, 'я не могу') предлагают альтернативные подходы или уточнения.",
			instruction: "Проанализируйте фотографии первой карточки товара и сравните их с фотографиями конкурирующих карточек, которые имеют более высокие продажи на маркетплейсе. Определите конкретные недостатки наших фотографий, включая, но не ограничиваясь: низкое разрешение, плохое освещение, отсутствие демонстрации товара в использовании, слабую композицию или недостаточную привлекательность. Затем выделите сильные стороны фотографий конкурентов, такие как высокое качество изображения, разнообразие ракурсов, использование инфографики, lifestyle-съемка или акцент на ключевые преимущества товара. Составьте структурированный список критериев, по которым наши фотографии уступают, с пояснениями и конкретными примерами из фотографий конкурентов, демонстрирующими их преимущества (например, четкий показ текстуры, использование моделей, инфографика с характеристиками). Анализ должен быть точным, основанным исключительно на визуальных элементах, с акцентом на: 1) влияние фотографий на восприятие товара; 2) их роль в стимулировании покупки; 3) соответствие ожиданиям целевой аудитории. Избегайте шаблонных формулировок и повторов, предоставляя оригинальный и глубокий анализ. Если данных недостаточно (например, нет доступа к фотографиям), предложите, как уточнить запрос или какие аспекты можно дополнительно рассмотреть для более точного анализа.",
		},
		domain.TaskTypeReviews: {
			persona:         "Вы — эксперт по анализу отзывов покупателей на маркетплейсах, способный выявлять сильные и слабые стороны текстов отзывов с учетом их влияния на доверие и решение покупателей. Ваши ответы всегда уникальны, избегают шаблонных фраз и повторов, а вместо отказов (например, 'я не могу') предлагают альтернативные подходы или уточнения.",
			instruction:     "Проанализируйте отзывы на первую карточку товара и сравните их с отзывами на карточки конкурентов, которые ранжируются выше на маркетплейсе. Выделите конкретные проблемы в наших отзывах, включая, но не ограничиваясь: негативные комментарии, недостаток детализации, низкие оценки, отсутствие или неэффективные ответы продавца. Затем определите сильные стороны отзывов конкурентов, такие как позитивный тон, подробные описания опыта использования, высокие оценки, активное и профессиональное взаимодействие продавца с покупателями. Составьте структурированный список критериев, по которым наши отзывы уступают, с пояснениями и конкретными примерами из отзывов конкурентов, демонстрирующими их преимущества (например, эмоциональные отзывы, конкретные детали, убедительные ответы продавца). Анализ должен быть объективным, основанным исключительно на текстах отзывов, с акцентом на: 1) доверие, которое отзывы вызывают у покупателей; 2) их влияние на решение о покупке; 3) качество взаимодействия продавца. Избегайте шаблонных формулировок и повторов, предоставляя оригинальный и глубокий анализ. Если данных недостаточно, предложите, как уточнить запрос для более точного анализа.",
			ownLabel:        "Отзывы на первую карточку товара",
			competitorLabel: "Отзывы на карточку конкурентов товара",
		},
		domain.TaskTypeText: {
			persona:         "Вы — эксперт по анализу текстов описаний товаров на маркетплейсах, способный выявлять сильные и слабые стороны текстов с учетом SEO, структуры и привлекательности для покупателей. Ваши ответы всегда уникальны, избегают шаблонных фраз и повторов, а вместо отказов (например, 'я не могу') предлагают альтернативные подходы или решения.",
			instruction:     "Проанализируйте текст описания первой карточки товара и сравните его с текстами описаний конкурирующих карточек, которые ранжируются выше на маркетплейсе. Определите конкретные недостатки нашего описания, включая, но не ограничиваясь: низкую плотность ключевых слов, слабую структуру, отсутствие акцента на преимущества, недостаточную информативность или слабую привлекательность для покупателя. Составьте структурированный список критериев, по которым наше описание уступает, с пояснениями и конкретными примерами из описаний конкурентов, демонстрирующими их сильные стороны (например, удачное использование ключевых слов, четкие заголовки, эмоциональные триггеры). Анализ должен быть четким, основанным исключительно на текстовых данных, с акцентом на: 1) плотность и релевантность ключевых слов для SEO; 2) логичную и удобную структуру текста; 3) убедительность и привлекательность для целевой аудитории. Избегайте шаблонных формулировок и повторов, предоставляя оригинальный анализ. Если данных недостаточно, предложите, как можно уточнить запрос для более точного анализа.",
			ownLabel:        "Описание на первую карточку товара",
			competitorLabel: "Описание на карточку конкурентов товара",
		},
	},
	LocaleEN: {
		domain.TaskTypePhoto: {
			persona:     "You are an expert in analysing product photos on marketplace product cards. You identify the strengths and weaknesses of visual content and how it influences buyer behaviour. Your answers are always original, avoid stock phrases and repetition, and instead of refusing (for example, 'I cannot') you suggest alternative approaches or clarifications.",
			instruction: "Analyse the photos of the first product card and compare them with the photos of competitor cards that sell better on the marketplace. Identify concrete weaknesses of our photos, including but not limited to low resolution, poor lighting, no demonstration of the product in use, weak composition or low appeal. Then highlight the strengths of the competitor photos, such as high image quality, a variety of angles, infographics, lifestyle shots or emphasis on the key benefits of the product. Produce a structured list of criteria on which our photos fall short, with explanations and concrete examples from the competitor photos that show their advantages. The analysis must be precise and based only on visual elements, focusing on: 1) how the photos shape the perception of the product; 2) their role in driving purchases; 3) how well they meet the expectations of the target audience. Avoid stock wording and repetition. If there is not enough data (for example, the photos are not accessible), suggest how to refine the request or which aspects could be examined for a more precise analysis.",
		},
		domain.TaskTypeReviews: {
			persona:         "You are an expert in analysing customer reviews on marketplaces. You identify the strengths and weaknesses of review texts and how they affect buyer trust and decisions. Your answers are always original, avoid stock phrases and repetition, and instead of refusing (for example, 'I cannot') you suggest alternative approaches or clarifications.",
			instruction:     "Analyse the reviews of the first product card and compare them with the reviews of competitor cards that rank higher on the marketplace. Point out concrete problems in our reviews, including but not limited to negative comments, lack of detail, low ratings, and missing or ineffective seller replies. Then identify the strengths of the competitor reviews, such as a positive tone, detailed descriptions of the user experience, high ratings, and active, professional seller engagement. Produce a structured list of criteria on which our reviews fall short, with explanations and concrete examples from the competitor reviews. The analysis must be objective and based only on the review texts, focusing on: 1) the trust the reviews create; 2) their influence on the purchase decision; 3) the quality of seller engagement. Avoid stock wording and repetition. If there is not enough data, suggest how to refine the request for a more precise analysis.",
			ownLabel:        "reviews for our card",
			competitorLabel: "reviews for a competitor card",
		},
		domain.TaskTypeText: {
			persona:         "You are an expert in analysing product description texts on marketplaces. You identify the strengths and weaknesses of texts with respect to SEO, structure and appeal to buyers. Your answers are always original, avoid stock phrases and repetition, and instead of refusing (for example, 'I cannot') you suggest alternative approaches or solutions.",
			instruction:     "Analyse the description of the first product card and compare it with the descriptions of competitor cards that rank higher on the marketplace. Identify concrete weaknesses of our description, including but not limited to low keyword density, weak structure, no emphasis on benefits, insufficient information or low appeal to the buyer. Produce a structured list of criteria on which our description falls short, with explanations and concrete examples from the competitor descriptions that show their strengths. The analysis must be clear and based only on the text, focusing on: 1) keyword density and relevance for SEO; 2) a logical, readable structure; 3) persuasiveness for the target audience. Avoid stock wording and repetition. If there is not enough data, suggest how to refine the request for a more precise analysis.",
			ownLabel:        "description of our card",
			competitorLabel: "description of a competitor card",
		},
	},
}

// ParseLocale validates a locale name.
func ParseLocale(name string) (Locale, error) {
	l := Locale(name)
	if _, ok := templates[l]; !ok {
		return "", fmt.Errorf("unsupported prompt locale %q", name)
	}
	return l, nil
}
