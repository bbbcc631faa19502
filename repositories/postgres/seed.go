package postgres

import (
	"context"
	"fmt"

	"github.com/bscm/assistant-backend/models"
	"go.uber.org/zap"
)

type seedEntry struct {
	question string
	answer   string
	category models.KnowledgeCategory
}

// seedCorpus is the initial BSCM Q&A corpus. Embeddings are left NULL and
// computed by the backfill pass after startup.
var seedCorpus = []seedEntry{
	{
		question: "什么是脑干海绵状血管畸形？",
		answer:   "脑干海绵状血管畸形（Brainstem Cavernous Malformation, BSCM）是一种先天性脑血管发育异常，属于脑血管畸形的一种。它是由异常扩张的毛细血管组成的血管团，血管壁薄弱，容易破裂出血。脑干是连接大脑和脊髓的重要结构，包含许多重要的神经核团和传导束，因此脑干海绵状血管畸形的治疗需要非常谨慎。",
		category: models.CategoryBasicKnowledge,
	},
	{
		question: "脑干海绵状血管畸形有哪些症状？",
		answer:   "脑干海绵状血管畸形的症状取决于病变的位置和大小。常见症状包括：1）头痛，特别是突发性剧烈头痛；2）神经功能障碍，如面部麻木、吞咽困难、声音嘶哑；3）眼球运动障碍，如复视、眼球震颤；4）肢体无力或感觉异常；5）平衡障碍和共济失调；6）意识障碍（严重时）。症状可能是急性发作（出血时）或慢性进展（反复少量出血）。",
		category: models.CategoryBasicKnowledge,
	},
	{
		question: "脑干海绵状血管畸形如何诊断？",
		answer:   "脑干海绵状血管畸形的诊断主要依靠影像学检查：1）磁共振成像（MRI）是最重要的检查方法，特别是T2加权像和梯度回波序列（GRE），可以清晰显示病变的\"爆米花\"样特征；2）磁敏感加权成像（SWI）对检测微出血非常敏感；3）CT扫描可以显示急性出血，但对病变本身的显示不如MRI；4）脑血管造影（DSA）通常显示正常，因为病变内血流缓慢。结合患者的临床症状和影像学表现可以做出诊断。",
		category: models.CategoryBasicKnowledge,
	},
	{
		question: "脑干海绵状血管畸形的治疗方法有哪些？",
		answer:   "脑干海绵状血管畸形的治疗方法包括：1）保守观察：对于无症状或症状轻微、病变较小的患者，可以定期随访观察；2）药物治疗：主要是对症治疗，如控制癫痫、缓解头痛等；3）手术治疗：对于反复出血、症状进行性加重、病变较大或位于相对安全的区域的患者，可以考虑手术切除；4）立体定向放射治疗：对于不适合手术的患者，可以考虑伽马刀等放射治疗，但效果和风险需要仔细评估。",
		category: models.CategoryBasicKnowledge,
	},
	{
		question: "脑干海绵状血管畸形会遗传吗？",
		answer:   "脑干海绵状血管畸形有家族性和散发性两种形式。家族性病例约占20-50%，与多个基因突变有关，最常见的是CCM1、CCM2和CCM3基因突变。家族性病例通常为常染色体显性遗传，但外显率不完全。散发性病例占大多数，通常为单发，没有明显的家族史。如果家族中有多人患病，建议进行遗传咨询和基因检测。",
		category: models.CategoryBasicKnowledge,
	},
	{
		question: "脑干海绵状血管畸形患者需要注意什么？",
		answer:   "脑干海绵状血管畸形患者需要注意：1）定期复查：每6-12个月进行一次MRI检查，监测病变变化；2）避免剧烈运动：特别是可能增加颅内压的活动，如举重、潜水等；3）控制血压：保持血压在正常范围，减少出血风险；4）避免使用抗凝药物：如阿司匹林、华法林等，除非有明确的医疗指征；5）注意症状变化：如出现新的神经症状或原有症状加重，应及时就医。",
		category: models.CategoryBasicKnowledge,
	},
	{
		question: "病例：患者，女性，42岁，因突发头痛、复视就诊",
		answer:   "患者主诉：突发剧烈头痛，伴有复视，持续2天。查体：左侧外展神经麻痹，左侧面部感觉轻度减退。MRI检查显示：脑桥左侧可见一约1.5cm的异常信号灶，T2加权像呈\"爆米花\"样改变，周围有含铁血黄素环。诊断：脑桥海绵状血管畸形伴急性出血。治疗：给予对症治疗，控制血压，密切观察。3个月后复查MRI，病变稳定，症状逐渐缓解。随访1年，患者症状基本消失。",
		category: models.CategoryCaseStudy,
	},
	{
		question: "病例：患者，男性，38岁，反复头痛伴左侧肢体无力",
		answer:   "患者主诉：近2年来反复出现头痛，伴有左侧肢体轻度无力。查体：左侧肢体肌力4级，左侧巴氏征阳性。MRI检查：中脑右侧可见一约2.0cm的海绵状血管畸形，周围有陈旧性出血征象。诊断：中脑海绵状血管畸形，反复出血。治疗：经多学科讨论决定手术治疗，在神经导航和电生理监测下完整切除病变。术后患者恢复良好，左侧肢体肌力恢复至5级，随访6个月无复发。",
		category: models.CategoryCaseStudy,
	},
	{
		question: "病例：患者，女性，35岁，体检发现脑干病变",
		answer:   "患者主诉：无特殊不适，体检时MRI发现脑干异常信号。查体：神经系统检查正常。MRI检查：延髓背侧可见一约0.8cm的海绵状血管畸形，无明显出血征象。诊断：延髓海绵状血管畸形（无症状）。治疗：考虑到病变较小、无症状，且位于延髓重要功能区，决定保守观察。每6个月复查MRI，连续随访2年，病变稳定，患者无任何症状。",
		category: models.CategoryCaseStudy,
	},
	{
		question: "病例：患者，女性，28岁，家族性病例",
		answer:   "患者主诉：头痛、复视1周。家族史：母亲和舅舅均患有脑干海绵状血管畸形。查体：右侧外展神经麻痹。MRI检查：脑桥右侧可见多发海绵状血管畸形，最大者约1.2cm，伴急性出血。基因检测：CCM1基因突变阳性。诊断：家族性脑干海绵状血管畸形。治疗：给予对症治疗，症状逐渐缓解。建议家族成员进行基因检测和MRI筛查。",
		category: models.CategoryCaseStudy,
	},
}

// SeedKnowledgeBase inserts the initial corpus when the knowledge_base table
// is empty. Idempotent: a populated table is left untouched.
func (db *DB) SeedKnowledgeBase(ctx context.Context) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge_base").Scan(&count); err != nil {
		return fmt.Errorf("failed to count knowledge entries: %w", err)
	}
	if count > 0 {
		db.logger.Info("knowledge base already populated, skipping seed",
			zap.Int("entries", count))
		return nil
	}

	query := `
		INSERT INTO knowledge_base (question, answer, category)
		VALUES ($1, $2, $3)
	`

	for _, entry := range seedCorpus {
		if _, err := db.ExecContext(ctx, query, entry.question, entry.answer, entry.category); err != nil {
			return fmt.Errorf("failed to seed knowledge entry: %w", err)
		}
	}

	db.logger.Info("knowledge base seeded", zap.Int("entries", len(seedCorpus)))
	return nil
}
