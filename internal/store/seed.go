package store

import "loot-tracker-api/internal/models"

// SeedOffers returns the built-in promotion list the store starts with
// before the first sync.
func SeedOffers() []models.Offer {
	return []models.Offer{
		{
			ID:             "icbc-1",
			Bank:           models.BankICBC,
			Title:          "工行消费季：天天抽i豆",
			Description:    "每天8点开始抽i豆，一直到月底，最高可得2000-10000豆。",
			Category:       models.CategoryLottery,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 2,
			Steps:          []string{"工行App", "搜索“任务中心”", "找到“工行消费季”", "每日抽奖"},
		},
		{
			ID:             "icbc-2",
			Bank:           models.BankICBC,
			Title:          "爱购星期五",
			Description:    "每周五抽立减金，限深圳地区信用卡用户尝试。",
			Category:       models.CategoryLottery,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 5,
			Steps:          []string{"工行App", "搜索“爱购星期五”", "周五参与"},
		},
		{
			ID:             "ccb-1",
			Bank:           models.BankCCB,
			Title:          "建行惠省钱：随机立减金",
			Description:    "最低可0.01元购36元立减金券包，找车头还能再反2元左右。",
			Category:       models.CategoryCoupon,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 36,
			Steps:          []string{"建行App", "搜索“惠省钱”", "抽取购买资格"},
		},
		{
			ID:             "ccb-2",
			Bank:           models.BankCCB,
			Title:          "任务中心：开宝箱",
			Description:    "签到做任务，1000积分开一次，近期很容易拿到100立减金。",
			Category:       models.CategoryLottery,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 10,
			Steps:          []string{"建行App", "底部“会员中心”", "点击“开宝箱”"},
		},
		{
			ID:             "cmb-1",
			Bank:           models.BankCMB,
			Title:          "M+会员：每月领还款金",
			Description:    "M+会员每月1号10点抢还款金/返现券，2号10点抢黄金红包。",
			Category:       models.CategoryCashback,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 10,
			Steps:          []string{"招商银行App", "搜索“M+会员”", "每月1号/2号准时参与"},
		},
		{
			ID:             "cmb-2",
			Bank:           models.BankCMB,
			Title:          "9分便民兑",
			Description:    "掌上生活9积分兑换视频会员、美食券等。",
			Category:       models.CategoryPoints,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 15,
			Steps:          []string{"掌上生活App", "我的-积分", "9分兑换专区"},
		},
		{
			ID:             "boc-1",
			Bank:           models.BankBOC,
			Title:          "福仔云游记",
			Description:    "参与云游记游戏，兑换微信立减金。",
			Category:       models.CategoryLottery,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 5,
			Steps:          []string{"中国银行App", "搜索“福仔云游记”", "做任务攒道具"},
		},
		{
			ID:             "boc-2",
			Bank:           models.BankBOC,
			Title:          "京东月月领券",
			Description:    "京东金融App内搜索“中行”领取，每月8-4元券等。",
			Category:       models.CategoryCoupon,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 8,
			Steps:          []string{"京东App", "搜索“中国银行”", "领取月月券"},
		},
		{
			ID:             "abc-1",
			Bank:           models.BankABC,
			Title:          "数字人民币领红包",
			Description:    "热门活动，缤纷购物节，领10元红包，叠加最低0撸。",
			Category:       models.CategoryCashback,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-06-30",
			EstimatedValue: 10,
			Steps:          []string{"农行App", "搜索“数字人民币”", "查看热门活动"},
		},
		{
			ID:             "psbc-1",
			Bank:           models.BankPSBC,
			Title:          "邮储9/19/29立减金",
			Description:    "每月9号、19号、29号专享权益，领取微信立减金。",
			Category:       models.CategoryCashback,
			Status:         models.StatusActive,
			ExpiryDate:     "2026-12-31",
			EstimatedValue: 10,
			Steps:          []string{"邮储银行App", "活动中心", "逢9必抢"},
		},
	}
}

// SeedCards returns the demo cards the registry starts with.
func SeedCards() []models.UserCard {
	return []models.UserCard{
		{ID: "c1", Bank: models.BankICBC, LastFour: "8899", Nickname: "我的工资卡"},
		{ID: "c2", Bank: models.BankCMB, LastFour: "1234", Nickname: "羊毛专用卡"},
	}
}
